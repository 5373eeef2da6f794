// Package ebuild implements the on-disk ebuild-tree cache adapter: it walks
// category/package directories directly and, for each ebuild, reads the
// metadata/md5-cache entry (KEY=VALUE lines) that a cache generator such as
// egencache has already written into the tree. eix's own "ebuild" cache
// invokes the package manager's cache generator; this backend never runs a
// cache generator or interprets an ebuild, and reads only the md5-cache
// entries already present.
package ebuild

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/eixgo/eixgo/internal/cache"
)

// Backend reads category/package/*.ebuild directories under Dir, pairing
// each ebuild with its metadata/md5-cache/<category>/<name>-<version>
// sibling file (portage's own cache format: KEY=VALUE lines, one per
// line, unordered — unlike the flat backend's fixed line positions).
type Backend struct {
	Dir string
}

// New builds a Backend rooted at a Portage tree checkout.
func New(dir string) *Backend { return &Backend{Dir: dir} }

// Type implements cache.Backend.
func (b *Backend) Type() string { return "ebuild" }

// CanReadMultipleCategories implements cache.Backend: true, since the whole
// tree is already on disk and one walk can cover every requested category.
func (b *Backend) CanReadMultipleCategories() bool { return true }

// ReadCategories walks each named category directory for *.ebuild files and
// reads the matching md5-cache entry for each.
func (b *Backend) ReadCategories(categories []string, onError cache.ErrorCallback) ([]cache.RawPackage, error) {
	var out []cache.RawPackage
	for _, category := range categories {
		pkgs, err := b.readCategory(category, onError)
		if err != nil {
			return nil, err
		}
		out = append(out, pkgs...)
	}
	return out, nil
}

func (b *Backend) readCategory(category string, onError cache.ErrorCallback) ([]cache.RawPackage, error) {
	catDir := filepath.Join(b.Dir, category)
	pkgDirs, err := os.ReadDir(catDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "ebuild: reading category %s", catDir)
	}

	var out []cache.RawPackage
	for _, pkgEnt := range pkgDirs {
		if !pkgEnt.IsDir() {
			continue
		}
		name := pkgEnt.Name()
		pkgDir := filepath.Join(catDir, name)
		ebuilds, err := os.ReadDir(pkgDir)
		if err != nil {
			onError(errors.Wrapf(cache.BackendError, "ebuild: reading %s: %v", pkgDir, err))
			continue
		}

		pkg := cache.RawPackage{Category: category, Name: name}
		for _, e := range ebuilds {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".ebuild") {
				continue
			}
			version := strings.TrimSuffix(strings.TrimPrefix(e.Name(), name+"-"), ".ebuild")
			rv, err := b.readMD5Cache(category, name, version)
			if err != nil {
				onError(errors.Wrapf(cache.BackendError, "%v", err))
				continue
			}
			rv.FullVersion = version
			pkg.Versions = append(pkg.Versions, rv)
		}
		if len(pkg.Versions) > 0 {
			out = append(out, pkg)
		}
	}
	return out, nil
}

// readMD5Cache reads metadata/md5-cache/<category>/<name>-<version>, a file
// of "KEY=value" lines written by egencache/repoman.
func (b *Backend) readMD5Cache(category, name, version string) (cache.RawVersion, error) {
	path := filepath.Join(b.Dir, "metadata", "md5-cache", category, name+"-"+version)
	data, err := os.ReadFile(path)
	if err != nil {
		return cache.RawVersion{}, errors.Wrapf(err, "Can't read cache file %s", path)
	}

	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		fields[line[:eq]] = line[eq+1:]
	}

	return cache.RawVersion{
		Slot:       firstNonEmpty(fields["SLOT"], "0"),
		Keywords:   fields["KEYWORDS"],
		IUse:       fields["IUSE"],
		Restrict:   fields["RESTRICT"],
		Properties: fields["PROPERTIES"],
		Depend:     fields["DEPEND"],
		RDepend:    fields["RDEPEND"],
		PDepend:    fields["PDEPEND"],
	}, nil
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
