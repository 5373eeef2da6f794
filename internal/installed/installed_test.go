package installed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadBuildsDBFromPkgTree(t *testing.T) {
	root := t.TempDir()
	vimDir := filepath.Join(root, "app-editors", "vim-9.0")
	require.NoError(t, os.MkdirAll(vimDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vimDir, "SLOT"), []byte("0\n"), 0o644))

	nanoDir := filepath.Join(root, "app-editors", "nano-6.0")
	require.NoError(t, os.MkdirAll(nanoDir, 0o755))
	// No SLOT file: should default to "0".

	db, err := Load(root)
	require.NoError(t, err)

	require.True(t, db.IsInstalled("app-editors", "vim"))
	versions := db.Versions("app-editors", "vim")
	require.Len(t, versions, 1)
	require.Equal(t, "9.0", versions[0].Version)
	require.Equal(t, "0", versions[0].Slot)

	require.True(t, db.IsInstalled("app-editors", "nano"))
	require.Equal(t, "0", db.Versions("app-editors", "nano")[0].Slot)

	require.False(t, db.IsInstalled("app-editors", "emacs"))
	require.Nil(t, db.Versions("app-editors", "emacs"))
}

func TestLoadMissingRootReturnsEmptyDB(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.False(t, db.IsInstalled("any", "thing"))
}

func TestLoadSkipsDotfilesAndNonVersionedEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".locks"), 0o755))
	pkgDir := filepath.Join(root, "dev-lang", "go-1.22")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))

	db, err := Load(root)
	require.NoError(t, err)
	require.True(t, db.IsInstalled("dev-lang", "go"))
	require.Equal(t, "1.22", db.Versions("dev-lang", "go")[0].Version)
}

func TestSplitNameVersion(t *testing.T) {
	name, version, ok := splitNameVersion("libreoffice-l10n-7.6.4")
	require.True(t, ok)
	require.Equal(t, "libreoffice-l10n", name)
	require.Equal(t, "7.6.4", version)

	_, _, ok = splitNameVersion("no-version")
	require.False(t, ok)
}
