// Package codec implements the primitive wire encoding used by the eixgo
// binary index: variable-length integers, length-prefixed strings, vectors,
// sets and packed flag groups, all read from or written to a forward-only
// byte stream with an explicit byte-offset cursor.
//
// The encoding generalizes RPM's fixed-width big-endian tag/value header
// layout into a single variable-length integer primitive that every other
// primitive here is built on top of.
package codec

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
)

// CorruptIndex is returned when the byte stream does not conform to the
// expected framing: a length prefix overflows, a declared size would read
// past the end of file, or an overlay index is out of range.
var CorruptIndex = errors.New("corrupt index")

// maxVarintLen is the number of bytes a uint64 can occupy once big-endian
// encoded without a leading zero byte.
const maxVarintLen = 8

// Reader decodes primitives from a forward-only byte stream, tracking the
// absolute byte offset of the next unread byte.
type Reader struct {
	r      *bufio.Reader
	offset int64
	// limit bounds a single field's claimed size against what can possibly
	// remain in the file, so a corrupt length prefix cannot trigger an
	// unbounded allocation (spec requirement: refuse strings larger than
	// remaining file bytes).
	limit int64
}

// NewReader wraps r. limit is the total number of bytes available from the
// current position onward (e.g. the remaining file size); pass a negative
// value to disable the bound (useful for in-memory buffers in tests).
func NewReader(r io.Reader, limit int64) *Reader {
	return &Reader{r: bufio.NewReader(r), limit: limit}
}

// Offset returns the absolute byte offset of the next unread byte.
func (r *Reader) Offset() int64 { return r.offset }

func (r *Reader) readByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, errors.Wrap(CorruptIndex, "premature end of file")
		}
		return 0, errors.Wrap(err, "codec: read failed")
	}
	r.offset++
	return b, nil
}

func (r *Reader) readFull(buf []byte) error {
	if r.limit >= 0 && int64(len(buf)) > r.limit-r.offset {
		return errors.Wrapf(CorruptIndex, "field of %d bytes exceeds remaining file size", len(buf))
	}
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrap(CorruptIndex, "premature end of file")
		}
		return errors.Wrap(err, "codec: read failed")
	}
	return nil
}

// GetNumber decodes a variable-length unsigned integer: a lead byte with its
// high bit clear is the literal value (0..127); a lead byte with its high
// bit set encodes, in its low 7 bits, the count of following big-endian
// bytes that hold the value.
func (r *Reader) GetNumber() (uint64, error) {
	lead, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if lead&0x80 == 0 {
		return uint64(lead), nil
	}
	n := int(lead & 0x7f)
	if n == 0 || n > maxVarintLen {
		return 0, errors.Wrapf(CorruptIndex, "invalid varint length prefix %d", n)
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// SkipNumber advances the cursor over one encoded integer without
// constructing it.
func (r *Reader) SkipNumber() error {
	_, err := r.GetNumber()
	return err
}

// GetString decodes a length-prefixed opaque byte string. An empty string
// is legal and round-trips to "".
func (r *Reader) GetString() (string, error) {
	n, err := r.GetNumber()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SkipString advances the cursor over one encoded string without
// constructing it.
func (r *Reader) SkipString() error {
	n, err := r.GetNumber()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if r.limit >= 0 && int64(n) > r.limit-r.offset {
		return errors.Wrapf(CorruptIndex, "string of %d bytes exceeds remaining file size", n)
	}
	discarded, err := io.CopyN(io.Discard, r.r, int64(n))
	r.offset += discarded
	if err != nil {
		return errors.Wrap(CorruptIndex, "premature end of file")
	}
	return nil
}

// ReadRaw reads exactly n uninterpreted bytes, used only for fixed-layout
// framing such as the header magic (not for any length-prefixed field).
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetFlags decodes a bitmask previously written with PutFlags: packed into
// the same variable-length integer encoding as GetNumber, not a fixed-width
// field — every other count/length in this format already uses PutNumber,
// so flags reuse that primitive rather than introducing a second,
// fixed-width convention.
func (r *Reader) GetFlags() (uint32, error) {
	v, err := r.GetNumber()
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// GetVector decodes a count-prefixed sequence, invoking get for each
// element.
func GetVector[T any](r *Reader, get func(*Reader) (T, error)) ([]T, error) {
	n, err := r.GetNumber()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := get(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SkipVector advances the cursor over a count-prefixed sequence without
// constructing any element, using the supplied per-element skipper.
func (r *Reader) SkipVector(skipElem func(*Reader) error) error {
	n, err := r.GetNumber()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if err := skipElem(r); err != nil {
			return err
		}
	}
	return nil
}

// Writer encodes primitives to an underlying byte sink, mirroring Reader
// byte-for-byte so that GetX(PutX(v)) == v for every primitive above.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// PutNumber encodes v with the same lead-byte scheme GetNumber decodes.
func (w *Writer) PutNumber(v uint64) error {
	if v < 0x80 {
		_, err := w.w.Write([]byte{byte(v)})
		return err
	}
	var buf [maxVarintLen]byte
	n := 0
	for tmp := v; tmp > 0; tmp >>= 8 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	if _, err := w.w.Write([]byte{0x80 | byte(n)}); err != nil {
		return err
	}
	_, err := w.w.Write(buf[:n])
	return err
}

// WriteRaw writes buf uninterpreted, the mirror of ReadRaw.
func (w *Writer) WriteRaw(buf []byte) error {
	_, err := w.w.Write(buf)
	return err
}

// PutString encodes s as a length-prefixed opaque byte string.
func (w *Writer) PutString(s string) error {
	if err := w.PutNumber(uint64(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w.w, s)
	return err
}

// PutFlags encodes a bitmask using the same packed-number encoding GetFlags
// decodes.
func (w *Writer) PutFlags(v uint32) error {
	return w.PutNumber(uint64(v))
}

// PutVector encodes a count-prefixed sequence, invoking put for each
// element in order.
func PutVector[T any](w *Writer, items []T, put func(*Writer, T) error) error {
	if err := w.PutNumber(uint64(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := put(w, item); err != nil {
			return err
		}
	}
	return nil
}

// PutSet encodes items after sorting them with less, satisfying the "T
// ordered, writes length + sorted elements" requirement for sets.
func PutSet[T any](w *Writer, items []T, less func(a, b T) bool, put func(*Writer, T) error) error {
	sorted := make([]T, len(items))
	copy(sorted, items)
	insertionSort(sorted, less)
	return PutVector(w, sorted, put)
}

// insertionSort avoids pulling in sort.Slice's reflection-based comparator
// for what is, in practice, always a handful of elements (IUse sets,
// license lists).
func insertionSort[T any](items []T, less func(a, b T) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
