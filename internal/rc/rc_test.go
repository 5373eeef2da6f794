package rc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingReturnsDefault(t *testing.T) {
	cfg, errs := LoadFile("/nonexistent/eixgorc")
	require.Empty(t, errs)
	require.Equal(t, Default().doc, cfg.doc)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	toml := `
[cache]
backend = "sqlite"
sqlitePath = "/var/cache/eixgo/metadata.db"

[search]
defaultAlgorithm = "regex"
`
	cfg, errs := Load(strings.NewReader(toml))
	require.Empty(t, errs)
	require.Equal(t, "sqlite", cfg.Cache().Backend)
	require.Equal(t, "/var/cache/eixgo/metadata.db", cfg.Cache().SQLitePath)
	require.Equal(t, "regex", cfg.Search().DefaultAlgorithm)
	// Unspecified fields keep Default's values.
	require.Equal(t, "/var/cache/eixgo/index", cfg.Index().Path)
	require.True(t, cfg.Output().Color)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	toml := `
[cache]
backend = "nfs"
`
	_, errs := Load(strings.NewReader(toml))
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "unknown cache.backend")
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	toml := `
[search]
defaultAlgorithm = "telepathy"
`
	_, errs := Load(strings.NewReader(toml))
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "unknown search.defaultAlgorithm")
}

func TestGetBoolParsesVariants(t *testing.T) {
	cfg := &Config{env: map[string]string{
		"EIXGO_COLOR":    "off",
		"EIXGO_TABLE":    "yes",
		"EIXGO_GARBLED":  "maybe",
	}}
	require.False(t, cfg.GetBool("COLOR", true))
	require.True(t, cfg.GetBool("TABLE", false))
	require.True(t, cfg.GetBool("GARBLED", true)) // unparseable falls back to fileValue
	require.True(t, cfg.GetBool("UNSET", true))   // unset falls back to fileValue
}

func TestGetBoolTextlistSplitsOnWhitespace(t *testing.T) {
	cfg := &Config{env: map[string]string{
		"EIXGO_OVERLAYS": "/overlay/one /overlay/two",
		"EIXGO_EMPTY":    "   ",
	}}
	require.Equal(t, []string{"/overlay/one", "/overlay/two"}, cfg.GetBoolTextlist("OVERLAYS", []string{"default"}))
	require.Nil(t, cfg.GetBoolTextlist("EMPTY", []string{"default"}))
	require.Equal(t, []string{"default"}, cfg.GetBoolTextlist("UNSET", []string{"default"}))
}

func TestGetPrefersEnvOverride(t *testing.T) {
	cfg := &Config{env: map[string]string{"EIXGO_PATH": "/from/env"}}
	require.Equal(t, "/from/env", cfg.Get("PATH", "/from/file"))
	require.Equal(t, "/from/file", cfg.Get("OTHER", "/from/file"))
}
