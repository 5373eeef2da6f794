package index_test

import (
	"bytes"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/eixgo/eixgo/internal/index"
)

func twoPackages() []index.Package {
	return []index.Package{
		{
			Category: "dev-lang", Name: "go", Desc: "the Go programming language",
			Homepage: "https://go.dev", HaveSameOverlayKey: true, OverlayKey: 0,
			Versions: []index.Version{
				{FullVersion: "1.22.0", SlotName: "0", FullKeywords: "amd64 arm64", EffectiveKeywords: "amd64 arm64",
					IUse: []index.IUse{{Name: "abi3", Flags: index.IUseNormal}},
					Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
			},
		},
		{
			Category: "dev-lang", Name: "python", Desc: "interpreted language",
			HaveSameOverlayKey: true, OverlayKey: 0,
			Versions: []index.Version{
				{FullVersion: "3.11.8", SlotName: "3.11", FullKeywords: "amd64", EffectiveKeywords: "amd64",
					Keywords: index.KeywordsFlags{State: index.KeywordsStable}},
				{FullVersion: "3.12.2", SlotName: "3.12", FullKeywords: "~amd64", EffectiveKeywords: "~amd64",
					Keywords: index.KeywordsFlags{State: index.KeywordsUnstable}},
			},
		},
	}
}

func overlays() []index.OverlayIdent {
	return []index.OverlayIdent{{Path: "/var/db/repos/gentoo", Label: "gentoo"}}
}

func TestWriteFileThenOpenRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	pkgs := twoPackages()
	require.NoError(t, index.WriteFile(&buf, pkgs, overlays(), index.CompressionNone))

	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	require.True(t, f.Header.IsCurrent())
	require.Equal(t, uint64(2), f.Header.Size)

	var got []string
	for f.Reader.HasNext() {
		require.NoError(t, f.Reader.Next())
		require.NoError(t, f.Reader.DecodeUpTo(index.StateAll))
		p, err := f.Reader.Release()
		require.NoError(t, err)
		got = append(got, p.Category+"/"+p.Name)
	}
	require.Equal(t, []string{"dev-lang/go", "dev-lang/python"}, got)
}

func TestNextSkipsUndecodedRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, twoPackages(), overlays(), index.CompressionNone))

	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)

	require.NoError(t, f.Reader.Next())
	require.NoError(t, f.Reader.DecodeUpTo(index.StateName))
	require.Equal(t, "go", f.Reader.Package().Name)

	// Abandon the rest of "go" mid-record and move straight to "python".
	require.NoError(t, f.Reader.Next())
	require.NoError(t, f.Reader.DecodeUpTo(index.StateAll))
	require.Equal(t, "python", f.Reader.Package().Name)
	require.Len(t, f.Reader.Package().Versions, 2)
	require.False(t, f.Reader.HasNext())
}

func TestOverlayKeyOutOfRangeIsCorrupt(t *testing.T) {
	pkgs := twoPackages()
	pkgs[0].OverlayKey = 5 // no such overlay
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, pkgs, overlays(), index.CompressionNone))

	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, f.Reader.Next())
	err = f.Reader.DecodeUpTo(index.StateAll)
	require.Error(t, err)
}

func TestZeroVersionPackageIsCorrupt(t *testing.T) {
	pkgs := twoPackages()
	pkgs[0].Versions = nil
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, pkgs, overlays(), index.CompressionNone))

	f, err := index.OpenFile(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, f.Reader.Next())
	err = f.Reader.DecodeUpTo(index.StateAll)
	require.Error(t, err)
}

func TestOpenFileRejectsObsoleteVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, index.WriteFile(&buf, twoPackages(), overlays(), index.CompressionNone))
	data := buf.Bytes()

	// Flip the on-disk format version (the single-byte varint right after
	// the 9-byte magic) and recompute the checksum trailer, isolating the
	// corruption to the version field alone.
	body := append([]byte(nil), data[:len(data)-8]...)
	body[9] ^= 0x7f
	sum := xxhash.Sum64(body)
	trailer := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		trailer[i] = byte(sum)
		sum >>= 8
	}
	tampered := append(body, trailer...)

	_, err := index.OpenFile(tampered)
	require.ErrorIs(t, err, index.ObsoleteFormat)
	require.ErrorContains(t, err, "obsolete")
}
