// Package flat implements the flat-file metadata cache backend: one file
// per package version, newline-delimited, at fixed line positions.
//
// Line layout is taken verbatim from
// original_source/src/cache/common/flat_reader.cc's flat_read_file and
// flat_get_keywords_slot_iuse_restrict (the non-USE_DEP branch, since this
// rework does not track per-dependency USE conditionals): 0 DEPEND,
// 1 RDEPEND, 2 SLOT, 4 RESTRICT, 5 HOMEPAGE, 6 LICENSES, 7 DESCRIPTION,
// 8 KEYWORDS, 10 IUSE, 15 PROPERTIES.
package flat

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/eixgo/eixgo/internal/cache"
)

// line indices into a flat cache file, per flat_reader.cc.
const (
	lineDepend      = 0
	lineRDepend     = 1
	lineSlot        = 2
	lineRestrict    = 4
	lineHomepage    = 5
	lineLicenses    = 6
	lineDescription = 7
	lineKeywords    = 8
	lineIUse        = 10
	lineProperties  = 15
	minLines        = lineProperties + 1
)

// Backend reads a category/package-version hierarchy of flat cache files
// rooted at Dir (conventionally /var/cache/edb/dep/<repo>).
type Backend struct {
	Dir string
}

// New builds a Backend rooted at dir.
func New(dir string) *Backend { return &Backend{Dir: dir} }

// Type implements cache.Backend.
func (b *Backend) Type() string { return "flat" }

// CanReadMultipleCategories implements cache.Backend: the flat backend's
// on-disk layout is one directory per category, so each must be walked
// separately.
func (b *Backend) CanReadMultipleCategories() bool { return false }

// ReadCategories reads every package-version file under each named category
// directory.
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
	entries, err := os.ReadDir(catDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "flat: reading category directory %s", catDir)
	}

	byName := make(map[string]*cache.RawPackage)
	var order []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name, version, ok := splitNameVersion(ent.Name())
		if !ok {
			continue
		}
		filePath := filepath.Join(catDir, ent.Name())
		rv, err := readVersionFile(filePath)
		if err != nil {
			onError(errors.Wrapf(cache.BackendError, "%v", err))
			continue
		}
		rv.FullVersion = version

		pkg, ok := byName[name]
		if !ok {
			pkg = &cache.RawPackage{Category: category, Name: name}
			if hp, lic, desc, err := ReadPackageDescriptiveFields(filePath); err == nil {
				pkg.Homepage, pkg.Licenses, pkg.Desc = hp, lic, desc
			}
			byName[name] = pkg
			order = append(order, name)
		}
		pkg.Versions = append(pkg.Versions, rv)
	}

	out := make([]cache.RawPackage, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

// splitNameVersion splits a "<name>-<version>" cache filename; version
// starts at the last hyphen followed by a digit.
func splitNameVersion(filename string) (name, version string, ok bool) {
	idx := strings.LastIndex(filename, "-")
	for idx > 0 {
		candidate := filename[idx+1:]
		if len(candidate) > 0 && candidate[0] >= '0' && candidate[0] <= '9' {
			return filename[:idx], candidate, true
		}
		idx = strings.LastIndex(filename[:idx], "-")
	}
	return "", "", false
}

// readVersionFile reads the fixed-position version-level lines from one
// cache file. Package-level fields (desc/homepage/licenses) live at
// different line positions in the same file and are read separately by
// ReadPackageDescriptiveFields, once per package.
func readVersionFile(path string) (cache.RawVersion, error) {
	f, err := os.Open(path)
	if err != nil {
		return cache.RawVersion{}, errors.Wrapf(err, "Can't open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return cache.RawVersion{}, errors.Wrapf(err, "Can't read cache file %s: %v", path, err)
	}
	if len(lines) < minLines {
		return cache.RawVersion{}, fmt.Errorf("Can't read cache file %s: short file (%d lines, want at least %d)", path, len(lines), minLines)
	}

	return cache.RawVersion{
		Depend:     lines[lineDepend],
		RDepend:    lines[lineRDepend],
		Slot:       lines[lineSlot],
		Restrict:   lines[lineRestrict],
		Keywords:   lines[lineKeywords],
		IUse:       lines[lineIUse],
		Properties: lines[lineProperties],
	}, nil
}

// ReadPackageDescriptiveFields reads the homepage/licenses/description
// lines shared by every version file in one package directory, using the
// first version file found (they are identical across a package's versions
// in the flat cache format, since the ebuild they're sourced from shares
// metadata with its siblings only for these three fields incidentally — in
// practice callers read them once per package from any one version file).
func ReadPackageDescriptiveFields(path string) (homepage, licenses, desc string, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return "", "", "", errors.Wrapf(openErr, "Can't open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; scanner.Scan(); i++ {
		switch i {
		case lineHomepage:
			homepage = scanner.Text()
		case lineLicenses:
			licenses = scanner.Text()
		case lineDescription:
			desc = scanner.Text()
			return homepage, licenses, desc, nil
		}
	}
	return homepage, licenses, desc, errors.Wrapf(scanner.Err(), "Can't read cache file %s", path)
}
