// Package ui renders query results to the terminal: the default colorized
// one-package-per-block listing, an optional tabular mode, and small
// diagnostic helpers, writing raw ANSI escapes directly to stderr/stdout
// rather than going through a structured logging library.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/eixgo/eixgo/internal/index"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

// ShowWarning prints a warning on stderr with a "bold yellow >>" marker.
func ShowWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s>>%s %s\n", ansiYellow, ansiBold, ansiReset, msg)
}

// ShowError prints an error on stderr in bold red.
func ShowError(err error) {
	fmt.Fprintf(os.Stderr, "%s%s!!%s %v\n", ansiRed, ansiBold, ansiReset, err)
}

// Printer renders matched packages to w. Color toggles ANSI escapes;
// non-interactive output (piped to a file) should disable it.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter builds a Printer writing to w.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) colorize(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

// PrintPackage renders one matched package in eix's default block style:
// "category/name" header, then description, homepage and an indented
// version list with mask/keyword markers.
func (p *Printer) PrintPackage(pkg *index.Package) {
	header := p.colorize(ansiBold+ansiBlue, pkg.Category+"/"+pkg.Name)
	fmt.Fprintln(p.w, header)
	if pkg.Desc != "" {
		fmt.Fprintf(p.w, "     %s\n", pkg.Desc)
	}
	if pkg.Homepage != "" {
		fmt.Fprintf(p.w, "     %s\n", pkg.Homepage)
	}
	fmt.Fprintf(p.w, "     Available versions:  %s\n", p.formatVersions(pkg.Versions))
	if pkg.InstalledVersions != "" {
		fmt.Fprintf(p.w, "     Installed versions:  %s\n", p.colorize(ansiGreen, pkg.InstalledVersions))
	}
}

func (p *Printer) formatVersions(versions []index.Version) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		s := v.FullVersion
		switch {
		case v.Mask.IsHardMasked() || v.Mask.IsPackageMask():
			s = p.colorize(ansiRed, "("+s+")")
		case v.Keywords.IsUnstable():
			s = p.colorize(ansiYellow, "~"+s)
		case v.Keywords.IsStable():
			s = p.colorize(ansiGreen, s)
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}

// PrintTable renders matched packages as a table via olekukonko/tablewriter,
// used with the CLI's --table flag for scripting-friendly output.
func (p *Printer) PrintTable(pkgs []*index.Package) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{"Category", "Name", "Versions", "Description"})
	table.SetAutoWrapText(false)
	for _, pkg := range pkgs {
		table.Append([]string{pkg.Category, pkg.Name, p.formatVersions(pkg.Versions), pkg.Desc})
	}
	table.Render()
}

// PrintSummary prints the trailing "Found N packages, searched M total."
// line after a search.
func (p *Printer) PrintSummary(matched, total int) {
	fmt.Fprintf(p.w, "\nFound %d packages, searched %d total.\n", matched, total)
}
