package xmldump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eixgo/eixgo/internal/index"
)

func samplePackage() *index.Package {
	return &index.Package{
		Category: "app-editors",
		Name:     "vim",
		Desc:     "the vim editor & friends",
		Homepage: "https://vim.org",
		Provide:  "editor",
		Versions: []index.Version{
			{FullVersion: "9.1", SlotName: "0", FullKeywords: "amd64 x86", EffectiveKeywords: "~amd64", Mask: index.MaskHardMasked,
				IUse:       []index.IUse{{Name: "nls", Flags: index.IUsePlus}, {Name: "python", Flags: index.IUseMinus}},
				Restrict:   index.RestrictTest | index.RestrictFetch,
				Properties: index.PropertiesLive},
		},
	}
}

func TestWritePackageEffectiveKeywordsMode(t *testing.T) {
	var buf bytes.Buffer
	xw := NewWriter(&buf, KeywordsEffective)
	require.NoError(t, xw.WriteHeader())
	require.NoError(t, xw.WritePackage(samplePackage()))
	require.NoError(t, xw.WriteFooter())

	out := buf.String()
	require.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	require.Contains(t, out, `<category name="app-editors">`)
	require.Contains(t, out, `<package name="vim">`)
	require.Contains(t, out, "the vim editor &amp; friends")
	require.Contains(t, out, "<provide>editor</provide>")
	require.Contains(t, out, `keywords="~amd64"`)
	require.NotContains(t, out, `keywords="amd64 x86"`)
	require.Contains(t, out, `<mask type="hard"/>`)
	require.Contains(t, out, `<iuse default="1">nls</iuse>`)
	require.Contains(t, out, `<use enabled="1">nls</use>`)
	require.Contains(t, out, `<iuse default="-1">python</iuse>`)
	require.Contains(t, out, `<use enabled="0">python</use>`)
	require.Contains(t, out, `<restrict flag="test"/>`)
	require.Contains(t, out, `<restrict flag="fetch"/>`)
	require.Contains(t, out, `<properties flag="live"/>`)
	require.Contains(t, out, "</category>")
	require.Contains(t, out, "</eixgodump>")
}

func TestWritePackageGroupsByCategoryAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	xw := NewWriter(&buf, KeywordsEffective)
	require.NoError(t, xw.WriteHeader())
	require.NoError(t, xw.WritePackage(&index.Package{Category: "app-editors", Name: "neovim", Versions: []index.Version{{FullVersion: "0.9"}}}))
	require.NoError(t, xw.WritePackage(&index.Package{Category: "app-editors", Name: "vim", Versions: []index.Version{{FullVersion: "9.1"}}}))
	require.NoError(t, xw.WritePackage(&index.Package{Category: "dev-lang", Name: "go", Versions: []index.Version{{FullVersion: "1.22"}}}))
	require.NoError(t, xw.WriteFooter())

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "<category "))
	require.Equal(t, 2, strings.Count(out, "</category>"))
	require.Equal(t, 1, strings.Count(out, `<category name="app-editors">`))
	require.Equal(t, 1, strings.Count(out, `<category name="dev-lang">`))
}

func TestWritePackageBothKeywordsMode(t *testing.T) {
	var buf bytes.Buffer
	xw := NewWriter(&buf, KeywordsBoth)
	require.NoError(t, xw.WritePackage(samplePackage()))
	out := buf.String()
	require.Contains(t, out, `keywords="amd64 x86"`)
	require.Contains(t, out, `effectiveKeywords="~amd64"`)
}

func TestWritePackageOmitsEmptyElements(t *testing.T) {
	var buf bytes.Buffer
	xw := NewWriter(&buf, KeywordsFull)
	require.NoError(t, xw.WritePackage(&index.Package{Category: "dev-lang", Name: "go", Versions: []index.Version{{FullVersion: "1.22"}}}))
	out := buf.String()
	require.NotContains(t, out, "<description>")
	require.NotContains(t, out, "<homepage>")
}

func TestEscape(t *testing.T) {
	require.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", escape(`a & b <c> "d" 'e'`))
}
