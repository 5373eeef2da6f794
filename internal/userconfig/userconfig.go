// Package userconfig loads the user-editable Portage overlays that shift a
// Version's effective mask/keyword state away from what the repository
// itself declares: package.mask, package.keywords and package.use,
// read from /etc/portage (and its .d/ directory-of-fragments form).
package userconfig

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Config holds the parsed user overlay files, indexed by category/name for
// O(1) lookup during a query pass.
type Config struct {
	mask     map[string][]string // category/name -> atom lines from package.mask
	keywords map[string][]string // category/name -> keyword tokens from package.keywords
	use      map[string][]string // category/name -> use tokens from package.use
}

func pkgKey(category, name string) string { return category + "/" + name }

// IsMasked reports whether any package.mask line names category/name.
func (c *Config) IsMasked(category, name string) bool {
	return len(c.mask[pkgKey(category, name)]) > 0
}

// AllMaskKeys returns every "category/name" key that package.mask names, for
// the -t/--test-non-matching reporter to cross-check against what a query
// actually matched.
func (c *Config) AllMaskKeys() []string {
	keys := make([]string, 0, len(c.mask))
	for k := range c.mask {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExtraKeywords returns the keyword tokens the user has accepted for
// category/name beyond the repository's own declared keywords.
func (c *Config) ExtraKeywords(category, name string) []string {
	return c.keywords[pkgKey(category, name)]
}

// ExtraUse returns the use-flag tokens the user has forced for
// category/name.
func (c *Config) ExtraUse(category, name string) []string {
	return c.use[pkgKey(category, name)]
}

// Load reads package.mask, package.keywords and package.use from root
// (typically /etc/portage), accepting both a single file and a directory of
// fragments for each (Portage's ".d/" convention). A missing file or
// directory is not an error; its overlay is simply empty.
func Load(root string) (*Config, error) {
	c := &Config{
		mask:     make(map[string][]string),
		keywords: make(map[string][]string),
		use:      make(map[string][]string),
	}

	if err := loadAtomLines(filepath.Join(root, "package.mask"), func(category, name, line string) {
		k := pkgKey(category, name)
		c.mask[k] = append(c.mask[k], line)
	}); err != nil {
		return nil, err
	}
	if err := loadTokenLines(filepath.Join(root, "package.keywords"), c.keywords); err != nil {
		return nil, err
	}
	if err := loadTokenLines(filepath.Join(root, "package.use"), c.use); err != nil {
		return nil, err
	}
	return c, nil
}

// loadAtomLines reads raw atom lines (package.mask has no trailing token
// list, just the atom itself) from path, which may be a single file or a
// directory of fragments.
func loadAtomLines(path string, add func(category, name, line string)) error {
	return forEachLine(path, func(line string) {
		category, name, ok := splitAtomCategoryName(line)
		if !ok {
			return
		}
		add(category, name, line)
	})
}

// loadTokenLines reads "<atom> <token> <token> ..." lines (package.keywords,
// package.use) from path into dst, keyed by category/name.
func loadTokenLines(path string, dst map[string][]string) error {
	return forEachLine(path, func(line string) {
		fields := strings.Fields(line)
		if len(fields) < 1 {
			return
		}
		category, name, ok := splitAtomCategoryName(fields[0])
		if !ok {
			return
		}
		k := pkgKey(category, name)
		dst[k] = append(dst[k], fields[1:]...)
	})
}

// splitAtomCategoryName extracts category/name from a simple atom of the
// form "[op]category/name[-version]", ignoring version-range operators and
// any trailing "-<version>" suffix; this overlay format does not need
// version-range matching precision, only which package a line names.
func splitAtomCategoryName(atom string) (category, name string, ok bool) {
	atom = strings.TrimLeft(atom, "<>=~!")
	slash := strings.Index(atom, "/")
	if slash < 0 {
		return "", "", false
	}
	category = atom[:slash]
	rest := atom[slash+1:]
	for idx := strings.LastIndexByte(rest, '-'); idx > 0; idx = strings.LastIndexByte(rest[:idx], '-') {
		cand := rest[idx+1:]
		if len(cand) > 0 && cand[0] >= '0' && cand[0] <= '9' {
			rest = rest[:idx]
			break
		}
	}
	return category, rest, rest != ""
}

func forEachLine(path string, visit func(line string)) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "userconfig: stat %s", path)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.Wrapf(err, "userconfig: reading %s", path)
		}
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	for _, f := range files {
		if err := scanFile(f, visit); err != nil {
			return err
		}
	}
	return nil
}

func scanFile(path string, visit func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "userconfig: opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		visit(line)
	}
	return errors.Wrapf(scanner.Err(), "userconfig: scanning %s", path)
}
