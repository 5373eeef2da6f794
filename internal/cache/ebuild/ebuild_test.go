package ebuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eixgo/eixgo/internal/cache"
)

func writeTree(t *testing.T, root string) {
	t.Helper()
	pkgDir := filepath.Join(root, "app-editors", "vim")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "vim-9.0.ebuild"), []byte("# stub\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "vim-9.1.ebuild"), []byte("# stub\n"), 0o644))

	cacheDir := filepath.Join(root, "metadata", "md5-cache", "app-editors")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "vim-9.0"), []byte(
		"SLOT=0\nKEYWORDS=amd64 x86\nIUSE=+acl nls\nRESTRICT=\nPROPERTIES=\nDEPEND=\nRDEPEND=\nPDEPEND=\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "vim-9.1"), []byte(
		"SLOT=0\nKEYWORDS=~amd64\nRESTRICT=test\n"), 0o644))
}

func TestReadCategoriesPairsEbuildsWithMD5Cache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root)

	b := New(root)
	require.Equal(t, "ebuild", b.Type())
	require.True(t, b.CanReadMultipleCategories())

	var errs []error
	pkgs, err := b.ReadCategories([]string{"app-editors"}, func(e error) { errs = append(errs, e) })
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, pkgs, 1)

	pkg := pkgs[0]
	require.Equal(t, "vim", pkg.Name)
	require.Len(t, pkg.Versions, 2)

	byVersion := map[string]cache.RawVersion{}
	for _, v := range pkg.Versions {
		byVersion[v.FullVersion] = v
	}
	require.Equal(t, "amd64 x86", byVersion["9.0"].Keywords)
	require.Equal(t, "+acl nls", byVersion["9.0"].IUse)
	require.Equal(t, "~amd64", byVersion["9.1"].Keywords)
	require.Equal(t, "test", byVersion["9.1"].Restrict)
	require.Equal(t, "0", byVersion["9.1"].Slot)
}

func TestReadCategoriesMissingMD5CacheReportsViaCallback(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "app-editors", "nano")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "nano-6.0.ebuild"), []byte("# stub\n"), 0o644))

	b := New(root)
	var errs []error
	pkgs, err := b.ReadCategories([]string{"app-editors"}, func(e error) { errs = append(errs, e) })
	require.NoError(t, err)
	require.Empty(t, pkgs)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], cache.BackendError)
}

func TestReadCategoriesMissingCategoryIsNotAnError(t *testing.T) {
	b := New(t.TempDir())
	pkgs, err := b.ReadCategories([]string{"does-not-exist"}, func(error) {})
	require.NoError(t, err)
	require.Empty(t, pkgs)
}
