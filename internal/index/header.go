package index

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"

	"github.com/eixgo/eixgo/internal/codec"
)

// CurrentVersion is the format version this package reads and writes.
// Readers reject any file whose header carries a different value.
const CurrentVersion uint64 = 3

// ObsoleteFormat is returned when a file's header version doesn't match
// CurrentVersion: rebuild the index with the matching eixgo-update before
// retrying.
var ObsoleteFormat = errors.New("obsolete index format")

const magic = "eixgo-idx"

// Compression selects the codec wrapping the package-record region that
// follows the header. Chosen once at write time and recorded in the header
// so a reader can transparently decompress before constructing a
// PackageReader.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
)

// DBHeader is the top-level index metadata, read once and owned by the
// driver for the lifetime of the file.
type DBHeader struct {
	Version     uint64
	Size        uint64
	Compression Compression
	Overlays    []OverlayIdent

	// Keywords and UseFlags are interned string dictionaries shared by every
	// Version in the file; order is the on-disk index and must be preserved
	// on write.
	Keywords []string
	UseFlags []string

	keywordIndex *swiss.Map[string, uint32]
	useFlagIndex *swiss.Map[string, uint32]
}

// IsCurrent reports whether this header's format version matches
// CurrentVersion.
func (h *DBHeader) IsCurrent() bool { return h.Version == CurrentVersion }

// CountOverlays returns the length of the overlay table.
func (h *DBHeader) CountOverlays() int { return len(h.Overlays) }

// GetOverlay returns the i'th overlay. An out-of-range index is data
// corruption: the writer guarantees every OverlayKey it mints is valid, so
// any violation observed here originates from a corrupt file.
func (h *DBHeader) GetOverlay(i int) (OverlayIdent, error) {
	if i < 0 || i >= len(h.Overlays) {
		return OverlayIdent{}, errors.Wrapf(codec.CorruptIndex, "overlay index %d out of range (have %d)", i, len(h.Overlays))
	}
	return h.Overlays[i], nil
}

// buildIndexes constructs the reverse name->index maps used for fast
// dictionary lookups. Called by BuildHeader, and lazily by KeywordIndex and
// UseFlagIndex on a header that has none yet; never serialized.
func (h *DBHeader) buildIndexes() {
	h.keywordIndex = swiss.New[string, uint32](len(h.Keywords))
	for i, k := range h.Keywords {
		h.keywordIndex.Put(k, uint32(i))
	}
	h.useFlagIndex = swiss.New[string, uint32](len(h.UseFlags))
	for i, u := range h.UseFlags {
		h.useFlagIndex.Put(u, uint32(i))
	}
}

// KeywordIndex returns the dictionary index for a keyword name, and false
// when the name is not in the dictionary; it never adds a name. The reverse
// maps are built on first use if buildIndexes has not run yet.
func (h *DBHeader) KeywordIndex(name string) (uint32, bool) {
	if h.keywordIndex == nil {
		h.buildIndexes()
	}
	return h.keywordIndex.Get(name)
}

// UseFlagIndex returns the dictionary index for a use-flag name.
func (h *DBHeader) UseFlagIndex(name string) (uint32, bool) {
	if h.useFlagIndex == nil {
		h.buildIndexes()
	}
	return h.useFlagIndex.Get(name)
}

// DecodeHeader reads a DBHeader from r: magic, version, package count,
// compression tag, overlay table, then the interned dictionaries. New fields must only ever
// be appended after this, with Version bumped, so that older readers can
// stop decoding early and skip the rest via SkipString/SkipVector.
func DecodeHeader(r *codec.Reader) (*DBHeader, error) {
	gotMagic, err := r.ReadRaw(len(magic))
	if err != nil {
		return nil, errors.Wrap(err, "index: reading magic")
	}
	if string(gotMagic) != magic {
		return nil, errors.Wrap(codec.CorruptIndex, "bad magic: not an eixgo index")
	}

	version, err := r.GetNumber()
	if err != nil {
		return nil, errors.Wrap(err, "index: reading format version")
	}

	h := &DBHeader{Version: version}

	h.Size, err = r.GetNumber()
	if err != nil {
		return nil, errors.Wrap(err, "index: reading package count")
	}

	compression, err := r.GetNumber()
	if err != nil {
		return nil, errors.Wrap(err, "index: reading compression tag")
	}
	if compression > uint64(CompressionZstd) {
		return nil, errors.Wrapf(codec.CorruptIndex, "unknown compression tag %d", compression)
	}
	h.Compression = Compression(compression)

	h.Overlays, err = codec.GetVector(r, decodeOverlayIdent)
	if err != nil {
		return nil, errors.Wrap(err, "index: reading overlay table")
	}

	h.Keywords, err = codec.GetVector(r, (*codec.Reader).GetString)
	if err != nil {
		return nil, errors.Wrap(err, "index: reading keyword dictionary")
	}

	h.UseFlags, err = codec.GetVector(r, (*codec.Reader).GetString)
	if err != nil {
		return nil, errors.Wrap(err, "index: reading use-flag dictionary")
	}

	h.buildIndexes()
	return h, nil
}

func decodeOverlayIdent(r *codec.Reader) (OverlayIdent, error) {
	path, err := r.GetString()
	if err != nil {
		return OverlayIdent{}, err
	}
	label, err := r.GetString()
	if err != nil {
		return OverlayIdent{}, err
	}
	return OverlayIdent{Path: path, Label: label}, nil
}

// EncodeHeader writes h to w using the same layout DecodeHeader expects.
func EncodeHeader(w *codec.Writer, h *DBHeader) error {
	if err := w.WriteRaw([]byte(magic)); err != nil {
		return err
	}
	if err := w.PutNumber(h.Version); err != nil {
		return err
	}
	if err := w.PutNumber(h.Size); err != nil {
		return err
	}
	if err := w.PutNumber(uint64(h.Compression)); err != nil {
		return err
	}
	if err := codec.PutVector(w, h.Overlays, encodeOverlayIdent); err != nil {
		return err
	}
	if err := codec.PutVector(w, h.Keywords, (*codec.Writer).PutString); err != nil {
		return err
	}
	return codec.PutVector(w, h.UseFlags, (*codec.Writer).PutString)
}

func encodeOverlayIdent(w *codec.Writer, o OverlayIdent) error {
	if err := w.PutString(o.Path); err != nil {
		return err
	}
	return w.PutString(o.Label)
}
