package ui

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
		Desc:     "the vim editor",
		Homepage: "https://vim.org",
		Versions: []index.Version{
			{FullVersion: "9.0", Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
			{FullVersion: "9.1", Keywords: index.KeywordsFlags{State: index.KeywordsUnstable}},
			{FullVersion: "8.9", Mask: index.MaskHardMasked},
		},
	}
}

func TestPrintPackageNoColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.PrintPackage(samplePackage())

	out := buf.String()
	require.Contains(t, out, "app-editors/vim")
	require.Contains(t, out, "the vim editor")
	require.Contains(t, out, "https://vim.org")
	require.Contains(t, out, "9.0")
	require.Contains(t, out, "~9.1")
	require.Contains(t, out, "(8.9)")
	require.NotContains(t, out, "\x1b[")
}

func TestPrintPackageColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.PrintPackage(samplePackage())
	require.Contains(t, buf.String(), "\x1b[")
}

func TestPrintPackageOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.PrintPackage(&index.Package{Category: "dev-lang", Name: "go", Versions: []index.Version{{FullVersion: "1.22"}}})
	out := buf.String()
	require.Contains(t, out, "dev-lang/go")
	require.Equal(t, 2, strings.Count(out, "\n")) // header + versions line, no desc/homepage lines
}

func TestPrintTableRendersEveryPackage(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.PrintTable([]*index.Package{samplePackage()})
	out := buf.String()
	require.Contains(t, out, "vim")
	require.Contains(t, out, "the vim editor")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.PrintSummary(3, 12000)
	require.Equal(t, "\nFound 3 packages, searched 12000 total.\n", buf.String())
}
