package index

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	"github.com/eixgo/eixgo/internal/codec"
)

// Writer serializes the package records of an index file, one record per
// Package, in the exact layout PackageReader expects; it does not write the
// DBHeader. Unlike PackageReader, Writer is not incremental — BuildHeader
// sees every Package up front so the header's interned dictionaries
// (keywords, use-flags) are built before any package bytes are written.
type Writer struct {
	w      *codec.Writer
	header *DBHeader
}

// BuildHeader builds the interned dictionaries from pkgs and overlays
// without writing anything, so a caller can decide on compression or
// checksum framing before any bytes are serialized. Packages must be sorted
// by (Category, Name) and each Package's Versions sorted ascending;
// BuildHeader does not sort them itself since the caller's sort order
// carries query-relevant intent (category-then-name lexicographic order,
// ascending version order within a package).
func BuildHeader(pkgs []Package, overlays []OverlayIdent) (*DBHeader, error) {
	if !slices.IsSortedFunc(pkgs, func(a, b Package) int {
		return strings.Compare(packageKey(a), packageKey(b))
	}) {
		return nil, errors.Wrap(codec.CorruptIndex, "packages must be sorted by category then name before writing")
	}

	header := &DBHeader{
		Version:  CurrentVersion,
		Size:     uint64(len(pkgs)),
		Overlays: overlays,
	}
	header.Keywords, header.UseFlags = internDictionaries(pkgs)
	header.buildIndexes()
	return header, nil
}

// NewWriter returns a Writer that encodes package records (not the header
// itself — the caller writes the header separately, via EncodeHeader or as
// part of WriteFile's framing) using header's interned dictionaries to
// resolve use-flag indexes.
func NewWriter(w *codec.Writer, header *DBHeader) *Writer {
	return &Writer{w: w, header: header}
}

func packageKey(p Package) string { return p.Category + "/" + p.Name }

// internDictionaries collects the distinct use-flag names across every
// version, in first-seen order, mirroring how the keyword dictionary is
// built from FullKeywords/EffectiveKeywords token sets in the original
// eix cache writer.
func internDictionaries(pkgs []Package) (keywords, useFlags []string) {
	seenUse := make(map[string]struct{})
	seenKw := make(map[string]struct{})
	for _, p := range pkgs {
		for _, v := range p.Versions {
			for _, iu := range v.IUse {
				if _, ok := seenUse[iu.Name]; !ok {
					seenUse[iu.Name] = struct{}{}
					useFlags = append(useFlags, iu.Name)
				}
			}
			for _, kw := range splitKeywords(v.FullKeywords) {
				if _, ok := seenKw[kw]; !ok {
					seenKw[kw] = struct{}{}
					keywords = append(keywords, kw)
				}
			}
		}
	}
	return keywords, useFlags
}

func splitKeywords(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}

// WritePackage appends one package record. Must be called exactly
// header.Size times, in the same order the packages were given to
// BuildHeader.
func (w *Writer) WritePackage(p Package) error {
	if err := w.w.PutString(p.Category); err != nil {
		return err
	}
	if err := w.w.PutString(p.Name); err != nil {
		return err
	}
	if err := w.w.PutString(p.Desc); err != nil {
		return err
	}
	if err := w.w.PutString(p.Homepage); err != nil {
		return err
	}
	if err := w.w.PutString(p.Licenses); err != nil {
		return err
	}
	if err := w.w.PutString(p.Provide); err != nil {
		return err
	}

	sameKey := p.HaveSameOverlayKey
	if err := w.w.PutFlags(boolFlag(sameKey)); err != nil {
		return err
	}
	if sameKey {
		if err := w.w.PutNumber(uint64(p.OverlayKey)); err != nil {
			return err
		}
	}

	return codec.PutVector(w.w, p.Versions, func(cw *codec.Writer, v Version) error {
		return w.writeVersion(cw, v, sameKey)
	})
}

func boolFlag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (w *Writer) writeVersion(cw *codec.Writer, v Version, sameKey bool) error {
	if err := cw.PutString(v.FullVersion); err != nil {
		return err
	}
	if err := cw.PutString(v.SlotName); err != nil {
		return err
	}
	if !sameKey {
		if err := cw.PutNumber(uint64(v.OverlayKey)); err != nil {
			return err
		}
	}
	if err := cw.PutFlags(uint32(v.Mask)); err != nil {
		return err
	}
	if err := cw.PutNumber(uint64(v.Keywords.State)); err != nil {
		return err
	}

	err := codec.PutVector(cw, v.IUse, func(cw *codec.Writer, iu IUse) error {
		idx, ok := w.header.UseFlagIndex(iu.Name)
		if !ok {
			return errors.Newf("index: use flag %q missing from header dictionary", iu.Name)
		}
		if err := cw.PutNumber(uint64(idx)); err != nil {
			return err
		}
		return cw.PutFlags(uint32(iu.Flags))
	})
	if err != nil {
		return err
	}

	if err := cw.PutFlags(uint32(v.Restrict)); err != nil {
		return err
	}
	if err := cw.PutFlags(uint32(v.Properties)); err != nil {
		return err
	}
	if err := cw.PutString(v.FullKeywords); err != nil {
		return err
	}
	return cw.PutString(v.EffectiveKeywords)
}
