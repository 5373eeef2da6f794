// Package xmldump renders matched packages as the XML document eix's
// --xml mode produces, for consumption by other tools (web frontends,
// package-database importers) that don't want to link the binary index
// format directly.
package xmldump

import (
	"fmt"
	"io"
	"strings"

	"github.com/eixgo/eixgo/internal/index"
)

// KeywordsMode selects which keyword string the attributes of a <version>
// element report, mirroring the XML_KEYWORDS tagged enum eix exposes: the
// repository's raw declaration, the profile-effective resolution, or both as
// separate attributes. The <keywords> and <effective_keywords> child
// elements are written whenever non-empty, whatever the mode.
type KeywordsMode int

const (
	// KeywordsEffective emits only the effective (profile-resolved) keyword
	// string. The default: it's what a user deciding whether to unmask a
	// version actually wants to see.
	KeywordsEffective KeywordsMode = iota
	// KeywordsFull emits only the repository's raw KEYWORDS string.
	KeywordsFull
	// KeywordsBoth emits both as separate attributes.
	KeywordsBoth
)

// Writer streams an XML dump of matched packages to w. Writer tracks the
// open <category> element itself and closes/reopens it whenever
// WritePackage sees a category different from the previous package's, so
// packages given in (category, name) order yield one <category> element per
// category. query.Run returns that order except when the matcher has a fuzzy
// leaf, in which case matches are sorted by edit distance and a category can
// appear in more than one <category> element.
type Writer struct {
	w    io.Writer
	mode KeywordsMode

	openCategory string
	haveCategory bool
}

// NewWriter builds a Writer.
func NewWriter(w io.Writer, mode KeywordsMode) *Writer {
	return &Writer{w: w, mode: mode}
}

// WriteHeader emits the XML prologue and opening <eixgodump> root element.
func (xw *Writer) WriteHeader() error {
	_, err := io.WriteString(xw.w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<eixgodump version=\"1\">\n")
	return err
}

// WriteFooter closes any still-open <category> element, then the root
// element.
func (xw *Writer) WriteFooter() error {
	if err := xw.closeCategory(); err != nil {
		return err
	}
	_, err := io.WriteString(xw.w, "</eixgodump>\n")
	return err
}

func (xw *Writer) closeCategory() error {
	if !xw.haveCategory {
		return nil
	}
	xw.haveCategory = false
	_, err := io.WriteString(xw.w, " </category>\n")
	return err
}

// WritePackage emits one <package> element for pkg, opening (or switching)
// the enclosing <category> element as needed.
func (xw *Writer) WritePackage(pkg *index.Package) error {
	if !xw.haveCategory || pkg.Category != xw.openCategory {
		if err := xw.closeCategory(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(xw.w, " <category name=%q>\n", escape(pkg.Category)); err != nil {
			return err
		}
		xw.openCategory = pkg.Category
		xw.haveCategory = true
	}

	if _, err := fmt.Fprintf(xw.w, "  <package name=%q>\n", escape(pkg.Name)); err != nil {
		return err
	}
	if err := xw.writeElem("description", pkg.Desc); err != nil {
		return err
	}
	if err := xw.writeElem("homepage", pkg.Homepage); err != nil {
		return err
	}
	if err := xw.writeElem("licenses", pkg.Licenses); err != nil {
		return err
	}
	if err := xw.writeElem("provide", pkg.Provide); err != nil {
		return err
	}
	for _, v := range pkg.Versions {
		if err := xw.writeVersion(pkg, v); err != nil {
			return err
		}
	}
	_, err := io.WriteString(xw.w, "  </package>\n")
	return err
}

func (xw *Writer) writeElem(name, content string) error {
	if content == "" {
		return nil
	}
	_, err := fmt.Fprintf(xw.w, "    <%s>%s</%s>\n", name, escape(content), name)
	return err
}

func (xw *Writer) writeVersion(pkg *index.Package, v index.Version) error {
	attrs := fmt.Sprintf("id=%q slot=%q", escape(v.FullVersion), escape(v.SlotName))
	if strings.Contains(" "+pkg.InstalledVersions+" ", " "+v.FullVersion+" ") {
		attrs += ` installed="1"`
	}
	switch xw.mode {
	case KeywordsFull:
		attrs += fmt.Sprintf(" keywords=%q", escape(v.FullKeywords))
	case KeywordsBoth:
		attrs += fmt.Sprintf(" keywords=%q effectiveKeywords=%q", escape(v.FullKeywords), escape(v.EffectiveKeywords))
	default:
		attrs += fmt.Sprintf(" keywords=%q", escape(v.EffectiveKeywords))
	}

	if _, err := fmt.Fprintf(xw.w, "    <version %s>\n", attrs); err != nil {
		return err
	}

	if err := xw.writeMasks(v.Mask); err != nil {
		return err
	}
	for _, iu := range v.IUse {
		if err := xw.writeIUse(iu); err != nil {
			return err
		}
	}
	if err := xw.writeRestrict(v.Restrict); err != nil {
		return err
	}
	if err := xw.writeProperties(v.Properties); err != nil {
		return err
	}
	if err := xw.writeElem("keywords", v.FullKeywords); err != nil {
		return err
	}
	if err := xw.writeElem("effective_keywords", v.EffectiveKeywords); err != nil {
		return err
	}

	_, err := io.WriteString(xw.w, "    </version>\n")
	return err
}

// writeMasks emits one <mask> element per masking predicate set on f. There
// is no <unmask> counterpart: this implementation doesn't plumb
// package.unmask overrides into index.Version (userconfig.Config tracks
// only package.mask/keywords/use), so nothing short-circuits a mask bit once
// it's set.
func (xw *Writer) writeMasks(f index.MaskFlags) error {
	if f.IsHardMasked() {
		if _, err := io.WriteString(xw.w, `      <mask type="hard"/>`+"\n"); err != nil {
			return err
		}
	}
	if f.IsProfileMask() {
		if _, err := io.WriteString(xw.w, `      <mask type="profile"/>`+"\n"); err != nil {
			return err
		}
	}
	if f.IsPackageMask() {
		if _, err := io.WriteString(xw.w, `      <mask type="package"/>`+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeIUse emits the declaring <iuse> element and, alongside it, the <use>
// element eix derives from the same default: a version carries no record of
// which flags a package manager actually toggled, so the iuse default is the
// best available signal for "enabled" absent an installed-package USE log.
func (xw *Writer) writeIUse(iu index.IUse) error {
	def := ""
	switch iu.Flags {
	case index.IUsePlus:
		def = ` default="1"`
	case index.IUseMinus:
		def = ` default="-1"`
	}
	if _, err := fmt.Fprintf(xw.w, "      <iuse%s>%s</iuse>\n", def, escape(iu.Name)); err != nil {
		return err
	}
	enabled := 0
	if iu.Flags == index.IUsePlus {
		enabled = 1
	}
	_, err := fmt.Fprintf(xw.w, "      <use enabled=%q>%s</use>\n", fmt.Sprint(enabled), escape(iu.Name))
	return err
}

var restrictNames = []struct {
	flag index.RestrictFlags
	name string
}{
	{index.RestrictBinChecks, "binchecks"},
	{index.RestrictStrip, "strip"},
	{index.RestrictTest, "test"},
	{index.RestrictUserPriv, "userpriv"},
	{index.RestrictInstallSources, "installsources"},
	{index.RestrictFetch, "fetch"},
	{index.RestrictMirror, "mirror"},
	{index.RestrictPrimaryURI, "primaryuri"},
	{index.RestrictBinDist, "bindist"},
	{index.RestrictParallel, "parallel"},
}

func (xw *Writer) writeRestrict(f index.RestrictFlags) error {
	for _, r := range restrictNames {
		if f&r.flag == 0 {
			continue
		}
		if _, err := fmt.Fprintf(xw.w, "      <restrict flag=%q/>\n", r.name); err != nil {
			return err
		}
	}
	return nil
}

var propertiesNames = []struct {
	flag index.PropertiesFlags
	name string
}{
	{index.PropertiesInteractive, "interactive"},
	{index.PropertiesLive, "live"},
	{index.PropertiesVirtual, "virtual"},
	{index.PropertiesSet, "set"},
}

func (xw *Writer) writeProperties(f index.PropertiesFlags) error {
	for _, p := range propertiesNames {
		if f&p.flag == 0 {
			continue
		}
		if _, err := fmt.Fprintf(xw.w, "      <properties flag=%q/>\n", p.name); err != nil {
			return err
		}
	}
	return nil
}

// escape replaces the five characters XML requires escaped in attribute and
// element text: & < > " '.
func escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}
