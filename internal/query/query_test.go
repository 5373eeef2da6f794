package query_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eixgo/eixgo/internal/codec"
	"github.com/eixgo/eixgo/internal/index"
	"github.com/eixgo/eixgo/internal/match"
	"github.com/eixgo/eixgo/internal/query"
	"github.com/eixgo/eixgo/internal/userconfig"
)

func samplePackages() []index.Package {
	return []index.Package{
		{
			Category: "app-editors", Name: "neovim", Desc: "heavily refactored vim fork",
			HaveSameOverlayKey: true, OverlayKey: 0,
			Versions: []index.Version{
				{FullVersion: "0.9.5", SlotName: "0", FullKeywords: "amd64 x86", EffectiveKeywords: "amd64 x86",
					Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
			},
		},
		{
			Category: "app-editors", Name: "vim", Desc: "vi improved",
			HaveSameOverlayKey: true, OverlayKey: 0,
			Versions: []index.Version{
				{FullVersion: "9.0", SlotName: "0", FullKeywords: "amd64", EffectiveKeywords: "amd64",
					Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
				{FullVersion: "9.1", SlotName: "0", FullKeywords: "~amd64", EffectiveKeywords: "~amd64",
					Keywords: index.KeywordsFlags{State: index.KeywordsUnstable}},
			},
		},
	}
}

func writeAndOpen(t *testing.T, pkgs []index.Package) *index.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, pkgs, mainOverlay(), index.CompressionNone))
	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	return f
}

func TestRunExactNameMatch(t *testing.T) {
	f := writeAndOpen(t, samplePackages())
	m, err := match.Leaf(match.SelectName, match.AlgoExact, "vim", 0)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Equal(t, "vim", res.Matches[0].Name)
	require.Len(t, res.Matches[0].Versions, 2)
	require.Equal(t, 2, res.Searched)
}

func TestRunWildcardMatchesMultiple(t *testing.T) {
	f := writeAndOpen(t, samplePackages())
	m, err := match.Leaf(match.SelectName, match.AlgoWildcard, "*vim*", 0)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
}

func TestRunFuzzySortsByDistance(t *testing.T) {
	f := writeAndOpen(t, samplePackages())
	m, err := match.Leaf(match.SelectName, match.AlgoFuzzy, "vim", 3)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.True(t, len(res.Matches) >= 1)
	require.Equal(t, "vim", res.Matches[0].Name)
}

func TestRunNoMatch(t *testing.T) {
	f := writeAndOpen(t, samplePackages())
	m, err := match.Leaf(match.SelectName, match.AlgoExact, "emacs", 0)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.Empty(t, res.Matches)
	require.Equal(t, 2, res.Searched)
}

func TestRoundTripCompressedSnappy(t *testing.T) {
	var buf bytes.Buffer
	pkgs := samplePackages()
	require.NoError(t, index.WriteFile(&buf, pkgs, mainOverlay(), index.CompressionSnappy))

	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, index.CompressionSnappy, f.Header.Compression)

	m, err := match.Leaf(match.SelectName, match.AlgoExact, "neovim", 0)
	require.NoError(t, err)
	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
}

func TestOpenFileRejectsCorruptChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, samplePackages(), mainOverlay(), index.CompressionNone))
	data := buf.Bytes()
	data[0] ^= 0xff

	_, err := index.OpenFile(data)
	require.ErrorIs(t, err, codec.CorruptIndex)
}

func TestRunDuplicateVersionsSelectorMatchesOverlappingOverlays(t *testing.T) {
	pkgs := []index.Package{
		{
			Category: "app-editors", Name: "vim", Desc: "vi improved",
			Versions: []index.Version{
				{FullVersion: "9.0", OverlayKey: 0, Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
				{FullVersion: "9.0", OverlayKey: 1, Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
			},
		},
	}
	var buf bytes.Buffer
	overlays := append(mainOverlay(), index.OverlayIdent{Path: "/var/db/repos/local", Label: "local"})
	require.NoError(t, index.WriteFile(&buf, append([]index.Package{samplePackages()[0]}, pkgs...), overlays, index.CompressionNone))
	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	m, err := match.Leaf(match.SelectDuplicateVersions, match.AlgoExact, "", 0)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Equal(t, "vim", res.Matches[0].Name)
}

func TestRunUserConfigRedundantSelectorMatchesNoOpMask(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.mask"), []byte("app-editors/vim\n"), 0o644))
	cfg, err := userconfig.Load(root)
	require.NoError(t, err)

	pkgs := []index.Package{
		{
			Category: "app-editors", Name: "vim", Desc: "vi improved",
			Versions: []index.Version{
				{FullVersion: "9.0", Mask: index.MaskHardMasked, Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
			},
		},
	}
	f := writeAndOpen(t, append([]index.Package{samplePackages()[0]}, pkgs...))
	m, err := match.Leaf(match.SelectUserConfigRedundant, match.AlgoExact, "", 0)
	require.NoError(t, err)

	res, err := query.Run(f, query.Options{Matcher: m, UserConfig: cfg})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Equal(t, "vim", res.Matches[0].Name)
}

func mainOverlay() []index.OverlayIdent {
	return []index.OverlayIdent{{Path: "/var/db/repos/gentoo", Label: "gentoo"}}
}
