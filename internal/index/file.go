package index

import (
	"bytes"
	"io"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"

	"github.com/eixgo/eixgo/internal/codec"
)

// File bundles the pieces needed to read or write one complete index file:
// [magic][DBHeader][package records, optionally compressed][xxhash64
// checksum of everything preceding].
type File struct {
	Header *DBHeader
	Reader *PackageReader
}

// OpenFile decodes the header from data, verifies the trailing checksum
// over the whole file, and returns a File ready to iterate packages. data
// must hold the complete file contents: the checksum covers everything
// before the trailer, so it cannot be verified incrementally from a stream.
func OpenFile(data []byte) (*File, error) {
	if len(data) < 8 {
		return nil, errors.Wrap(codec.CorruptIndex, "file too small to contain a checksum trailer")
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]

	want := beUint64(trailer)
	got := xxhash.Sum64(body)
	if want != got {
		return nil, errors.Wrapf(codec.CorruptIndex, "checksum mismatch: file corrupt (want %x, got %x)", want, got)
	}

	r := codec.NewReader(bytes.NewReader(body), int64(len(body)))
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if !header.IsCurrent() {
		return nil, errors.Wrapf(ObsoleteFormat, "index format version %d is obsolete (this build reads version %d); rebuild with eixgo-update", header.Version, CurrentVersion)
	}

	rest := body[r.Offset():]
	decoded, err := decompressBody(rest, header.Compression)
	if err != nil {
		return nil, err
	}

	pr := NewPackageReader(codec.NewReader(bytes.NewReader(decoded), int64(len(decoded))), header)
	return &File{Header: header, Reader: pr}, nil
}

func decompressBody(body []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionSnappy:
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, errors.Wrap(err, "index: snappy decompress failed")
		}
		return decoded, nil
	case CompressionZstd:
		decoded, err := zstd.Decompress(nil, body)
		if err != nil {
			return nil, errors.Wrap(err, "index: zstd decompress failed")
		}
		return decoded, nil
	default:
		return nil, errors.Wrapf(codec.CorruptIndex, "unknown compression tag %d", c)
	}
}

// WriteFile builds a header from pkgs and overlays, writes every package
// record, then appends the xxhash64 checksum trailer. The package-record
// region is compressed as a whole, per compression, before the checksum is
// computed — the checksum protects exactly the bytes written to disk.
func WriteFile(dst io.Writer, pkgs []Package, overlays []OverlayIdent, compression Compression) error {
	header, err := BuildHeader(pkgs, overlays)
	if err != nil {
		return err
	}
	header.Compression = compression

	var headerBuf bytes.Buffer
	if err := EncodeHeader(codec.NewWriter(&headerBuf), header); err != nil {
		return errors.Wrap(err, "index: encoding header")
	}

	var bodyBuf bytes.Buffer
	wr := NewWriter(codec.NewWriter(&bodyBuf), header)
	for _, p := range pkgs {
		if err := wr.WritePackage(p); err != nil {
			return errors.Wrapf(err, "index: writing package %s/%s", p.Category, p.Name)
		}
	}

	compressed, err := compressBody(bodyBuf.Bytes(), header.Compression)
	if err != nil {
		return err
	}

	full := make([]byte, 0, headerBuf.Len()+len(compressed)+8)
	full = append(full, headerBuf.Bytes()...)
	full = append(full, compressed...)
	sum := xxhash.Sum64(full)
	full = appendUint64(full, sum)

	_, err = dst.Write(full)
	return errors.Wrap(err, "index: writing file")
}

func compressBody(body []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionSnappy:
		return snappy.Encode(nil, body), nil
	case CompressionZstd:
		return zstd.Compress(nil, body)
	default:
		return nil, errors.Wrapf(codec.CorruptIndex, "unknown compression tag %d", c)
	}
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 7; i >= 0; i-- {
		tmp[i] = byte(v)
		v >>= 8
	}
	return append(buf, tmp[:]...)
}
