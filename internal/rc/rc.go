// Package rc loads the eixgo runtime configuration file (eixrc): index and
// cache-backend locations, default match behavior, and output formatting
// toggles, expressed as TOML and decoded with BurntSushi/toml.
package rc

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/eixgo/eixgo/internal/ecollect"
)

// Document is the raw TOML shape of an eixrc file. Exported field names
// exist only so toml.Decode can produce useful diagnostics on malformed
// input.
type Document struct {
	Index   IndexSection
	Cache   CacheSection
	Search  SearchSection
	Output  OutputSection
}

// IndexSection configures where the binary index lives and is rebuilt from.
type IndexSection struct {
	Path        string
	PortDir     string
	OverlayDirs []string
}

// CacheSection selects and configures the cache backend eixgo-update reads
// ebuild metadata from.
type CacheSection struct {
	Backend  string // "flat", "sqlite", or "ebuild"
	SQLitePath string
}

// SearchSection configures default query behavior. DefaultAlgorithm is
// validated by Load and FuzzyMaxDistance is stored, but match.ParsePostfix
// reads neither: a leaf without an algorithm flag is wildcard, and -f
// without k allows distance 2.
type SearchSection struct {
	DefaultAlgorithm string // "exact", "wildcard", "regex", "fuzzy"
	FuzzyMaxDistance int
	InstalledDBPath  string
	UserConfigDir    string
}

// OutputSection configures result rendering.
type OutputSection struct {
	Color     bool
	Table     bool
	ShowSlots bool
}

// Config is the validated, defaulted runtime configuration eixgo components
// consume. It is built from Document plus environment variable overrides.
type Config struct {
	doc Document
	env map[string]string
}

// Default returns a Config with eixgo's built-in defaults, used when no
// eixrc file is present.
func Default() *Config {
	return &Config{doc: Document{
		Index:  IndexSection{Path: "/var/cache/eixgo/index", PortDir: "/var/db/repos/gentoo"},
		Cache:  CacheSection{Backend: "flat"},
		Search: SearchSection{DefaultAlgorithm: "wildcard", FuzzyMaxDistance: 2, InstalledDBPath: "/var/db/pkg", UserConfigDir: "/etc/portage"},
		Output: OutputSection{Color: true},
	}, env: envOverrides()}
}

// Load reads and decodes r as TOML into a Config seeded with Default's
// values, so a partial eixrc only needs to specify what it overrides.
func Load(r io.Reader) (*Config, []error) {
	cfg := Default()
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, []error{errors.Wrap(err, "rc: reading config")}
	}
	if _, err := toml.Decode(string(blob), &cfg.doc); err != nil {
		return nil, []error{errors.Wrap(err, "rc: parsing config")}
	}

	ec := &ecollect.Collector{}
	switch cfg.doc.Cache.Backend {
	case "flat", "sqlite", "ebuild":
	default:
		ec.Addf("rc: unknown cache.backend %q (want flat, sqlite, or ebuild)", cfg.doc.Cache.Backend)
	}
	switch cfg.doc.Search.DefaultAlgorithm {
	case "exact", "wildcard", "regex", "fuzzy":
	default:
		ec.Addf("rc: unknown search.defaultAlgorithm %q", cfg.doc.Search.DefaultAlgorithm)
	}
	if ec.HasErrors() {
		return nil, ec.Errors
	}
	return cfg, nil
}

// LoadFile opens path and delegates to Load. A missing file returns Default
// unmodified, matching eix's tolerance of a system with no eixrc installed.
func LoadFile(path string) (*Config, []error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, []error{errors.Wrapf(err, "rc: opening %s", path)}
	}
	defer f.Close()
	return Load(f)
}

func envOverrides() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "EIXGO_") {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

// Get returns a string key, honoring an EIXGO_<KEY> environment override
// over the file value.
func (c *Config) Get(envKey, fileValue string) string {
	if v, ok := c.env["EIXGO_"+envKey]; ok {
		return v
	}
	return fileValue
}

// GetBool parses an EIXGO_<KEY> environment override as a boolean, falling
// back to fileValue if unset or unparseable.
func (c *Config) GetBool(envKey string, fileValue bool) bool {
	v, ok := c.env["EIXGO_"+envKey]
	if !ok {
		return fileValue
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fileValue
	}
}

// GetBoolTextlist parses a whitespace-separated EIXGO_<KEY> environment
// override into a []string, falling back to fileValue if unset. Named after
// eix's BoolTextlist eixrc variable kind: a list that is also meaningfully
// truthy/falsy as a whole (empty = false).
func (c *Config) GetBoolTextlist(envKey string, fileValue []string) []string {
	v, ok := c.env["EIXGO_"+envKey]
	if !ok {
		return fileValue
	}
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Fields(v)
}

// Index, Cache, Search and Output expose the decoded sections directly for
// components that only need struct access, not env overrides.
func (c *Config) Index() IndexSection   { return c.doc.Index }
func (c *Config) Cache() CacheSection   { return c.doc.Cache }
func (c *Config) Search() SearchSection { return c.doc.Search }
func (c *Config) Output() OutputSection { return c.doc.Output }
