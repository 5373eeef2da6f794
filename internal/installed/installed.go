// Package installed reads the local package manager's installed-package
// database (Portage's /var/db/pkg tree) into an in-memory lookup used to
// annotate query results with installed-version and stability information.
package installed

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Entry is one installed version of a package, as recorded under
// /var/db/pkg/<category>/<name>-<version>.
type Entry struct {
	Category string
	Name     string
	Version  string
	Slot     string
}

// DB is a lookup from (category, name) to the installed versions of that
// package. It is built once from the filesystem and never mutated.
type DB struct {
	byPackage map[string][]Entry
}

func key(category, name string) string { return category + "/" + name }

// Versions returns the installed versions of category/name, or nil if none
// are installed.
func (db *DB) Versions(category, name string) []Entry {
	return db.byPackage[key(category, name)]
}

// IsInstalled reports whether any version of category/name is installed.
func (db *DB) IsInstalled(category, name string) bool {
	return len(db.byPackage[key(category, name)]) > 0
}

// Load walks root (typically /var/db/pkg) and builds a DB from its
// category/name-version directory layout. Missing root is not an error: an
// empty DB is returned, matching eix's behavior of tolerating a system with
// no package manager database mounted (e.g. a chroot image build).
func Load(root string) (*DB, error) {
	db := &DB{byPackage: make(map[string][]Entry)}

	categories, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, errors.Wrapf(err, "installed: reading %s", root)
	}

	for _, catEnt := range categories {
		if !catEnt.IsDir() || strings.HasPrefix(catEnt.Name(), ".") {
			continue
		}
		category := catEnt.Name()
		catPath := filepath.Join(root, category)
		pkgDirs, err := os.ReadDir(catPath)
		if err != nil {
			return nil, errors.Wrapf(err, "installed: reading %s", catPath)
		}
		for _, pkgEnt := range pkgDirs {
			if !pkgEnt.IsDir() {
				continue
			}
			name, version, ok := splitNameVersion(pkgEnt.Name())
			if !ok {
				continue
			}
			slot := readSlot(filepath.Join(catPath, pkgEnt.Name()))
			e := Entry{Category: category, Name: name, Version: version, Slot: slot}
			k := key(category, name)
			db.byPackage[k] = append(db.byPackage[k], e)
		}
	}
	return db, nil
}

// splitNameVersion splits a "<name>-<version>" directory entry, where
// version starts at the last "-<digit...>" segment, mirroring Portage's own
// CPV splitting convention.
func splitNameVersion(dirName string) (name, version string, ok bool) {
	idx := strings.LastIndex(dirName, "-")
	for idx > 0 {
		candidate := dirName[idx+1:]
		if len(candidate) > 0 && (candidate[0] >= '0' && candidate[0] <= '9') {
			return dirName[:idx], candidate, true
		}
		idx = strings.LastIndex(dirName[:idx], "-")
	}
	return "", "", false
}

func readSlot(pkgDir string) string {
	b, err := os.ReadFile(filepath.Join(pkgDir, "SLOT"))
	if err != nil {
		return "0"
	}
	slot := strings.TrimSpace(string(b))
	if slot == "" {
		return "0"
	}
	return slot
}
