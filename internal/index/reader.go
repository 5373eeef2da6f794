package index

import (
	"github.com/cockroachdb/errors"

	"github.com/eixgo/eixgo/internal/codec"
)

// State is the decode progress of the package currently under the cursor.
// Transitions are one-way forward within one record: None -> Name ->
// Description -> Versions -> All.
type State int

const (
	StateNone State = iota
	StateName
	StateDescription
	StateVersions
	StateAll
)

// PackageReader is a forward-only, lazily-decoding iterator over the
// package records written after a DBHeader. Each call to Next starts a new
// record; DecodeUpTo advances the current record's decode state without
// moving to the next record, so a Matchatom leaf that only needs a
// package's name never pays for decoding its versions.
//
// This format interleaves a Version's light fields (full_version, slotname,
// overlay_key) with its heavy fields (maskflags, keyflags, iuse, restrict,
// properties, keywords) in one contiguous per-version sub-record. Because
// the stream is forward-only, once a byte range is skipped it cannot be
// recovered; independent "versions now, heavy
// version fields later" laziness would require splitting those two groups
// into separate on-disk passes, which the wire format does not do. StateAll
// therefore decodes in the same pass as StateVersions: both target the same
// underlying decode step. See DESIGN.md for this resolution.
type PackageReader struct {
	r      *codec.Reader
	header *DBHeader

	remaining uint64 // records not yet started
	state     State
	pkg       Package
}

// NewPackageReader constructs a reader over r, positioned immediately after
// a DBHeader has been decoded from the same stream.
func NewPackageReader(r *codec.Reader, header *DBHeader) *PackageReader {
	return &PackageReader{r: r, header: header, remaining: header.Size, state: StateAll}
}

// Next advances to the next package record. If the previous record was not
// fully consumed, its remaining bytes are skipped first. Returns an error
// when no record remains; HasNext reports that without consuming anything.
func (pr *PackageReader) Next() error {
	if pr.state != StateAll {
		if err := pr.finishSkipping(); err != nil {
			return err
		}
	}
	if pr.remaining == 0 {
		return errEOF
	}
	pr.remaining--
	pr.pkg = Package{}
	pr.state = StateNone
	return nil
}

// errEOF is a private sentinel distinguishing "no more records" from a real
// decode failure; HasNext below is the public surface callers use instead of
// comparing errors directly.
var errEOF = errors.New("index: no more package records")

// HasNext reports, without consuming anything, whether further records
// remain. Query drivers should use: for pr.HasNext() { if err :=
// pr.Next(); err != nil { ... } ; ... }
func (pr *PackageReader) HasNext() bool {
	return pr.remaining > 0
}

// Package returns the current record, valid up to the fields implied by
// State().
func (pr *PackageReader) Package() *Package { return &pr.pkg }

// CurrentState reports how much of the current record has been decoded.
func (pr *PackageReader) CurrentState() State { return pr.state }

// DecodeUpTo decodes forward, in order, until at least the requested state
// is reached. Calling it with a state already reached is a no-op.
func (pr *PackageReader) DecodeUpTo(target State) error {
	if pr.state >= target {
		return nil
	}
	if pr.state == StateNone {
		if err := pr.decodeName(); err != nil {
			return err
		}
		pr.state = StateName
	}
	if target == StateName {
		return nil
	}
	if pr.state == StateName {
		if err := pr.decodeDescription(); err != nil {
			return err
		}
		pr.state = StateDescription
	}
	if target == StateDescription {
		return nil
	}
	if pr.state == StateDescription {
		if err := pr.decodeVersions(); err != nil {
			return err
		}
		pr.state = StateAll
	}
	return nil
}

func (pr *PackageReader) decodeName() error {
	cat, err := pr.r.GetString()
	if err != nil {
		return errors.Wrap(err, "index: reading package category")
	}
	name, err := pr.r.GetString()
	if err != nil {
		return errors.Wrap(err, "index: reading package name")
	}
	pr.pkg.Category = cat
	pr.pkg.Name = name
	return nil
}

func (pr *PackageReader) decodeDescription() error {
	var err error
	if pr.pkg.Desc, err = pr.r.GetString(); err != nil {
		return errors.Wrap(err, "index: reading description")
	}
	if pr.pkg.Homepage, err = pr.r.GetString(); err != nil {
		return errors.Wrap(err, "index: reading homepage")
	}
	if pr.pkg.Licenses, err = pr.r.GetString(); err != nil {
		return errors.Wrap(err, "index: reading licenses")
	}
	if pr.pkg.Provide, err = pr.r.GetString(); err != nil {
		return errors.Wrap(err, "index: reading provide")
	}
	return nil
}

func (pr *PackageReader) decodeVersions() error {
	sameKeyFlag, err := pr.r.GetFlags()
	if err != nil {
		return errors.Wrap(err, "index: reading have_same_overlay_key")
	}
	pr.pkg.HaveSameOverlayKey = sameKeyFlag != 0
	if pr.pkg.HaveSameOverlayKey {
		key, err := pr.r.GetNumber()
		if err != nil {
			return errors.Wrap(err, "index: reading package overlay key")
		}
		if err := pr.checkOverlayKey(int(key)); err != nil {
			return err
		}
		pr.pkg.OverlayKey = int(key)
	}

	versions, err := codec.GetVector(pr.r, func(r *codec.Reader) (Version, error) {
		return decodeVersion(r, pr.header, pr.pkg.HaveSameOverlayKey, pr.pkg.OverlayKey, pr.checkOverlayKey)
	})
	if err != nil {
		return errors.Wrap(err, "index: reading versions")
	}
	if len(versions) == 0 {
		return errors.Wrap(codec.CorruptIndex, "package has zero versions")
	}
	pr.pkg.Versions = versions
	return nil
}

func (pr *PackageReader) checkOverlayKey(key int) error {
	if key < 0 || key >= pr.header.CountOverlays() {
		return errors.Wrapf(codec.CorruptIndex, "overlay key %d out of range (have %d overlays)", key, pr.header.CountOverlays())
	}
	return nil
}

func decodeVersion(r *codec.Reader, header *DBHeader, sameKey bool, pkgKey int, checkKey func(int) error) (Version, error) {
	var v Version
	var err error
	if v.FullVersion, err = r.GetString(); err != nil {
		return v, err
	}
	if v.SlotName, err = r.GetString(); err != nil {
		return v, err
	}
	if sameKey {
		v.OverlayKey = pkgKey
	} else {
		key, err := r.GetNumber()
		if err != nil {
			return v, err
		}
		if err := checkKey(int(key)); err != nil {
			return v, err
		}
		v.OverlayKey = int(key)
	}

	maskBits, err := r.GetFlags()
	if err != nil {
		return v, err
	}
	v.Mask = MaskFlags(maskBits)

	keyState, err := r.GetNumber()
	if err != nil {
		return v, err
	}
	v.Keywords.State = KeywordsState(keyState)

	v.IUse, err = codec.GetVector(r, func(r *codec.Reader) (IUse, error) {
		idx, err := r.GetNumber()
		if err != nil {
			return IUse{}, err
		}
		flags, err := r.GetFlags()
		if err != nil {
			return IUse{}, err
		}
		if int(idx) >= len(header.UseFlags) {
			return IUse{}, errors.Wrapf(codec.CorruptIndex, "use-flag dictionary index %d out of range", idx)
		}
		return IUse{Name: header.UseFlags[idx], Flags: IUseFlag(flags)}, nil
	})
	if err != nil {
		return v, err
	}

	restrictBits, err := r.GetFlags()
	if err != nil {
		return v, err
	}
	v.Restrict = RestrictFlags(restrictBits)

	propBits, err := r.GetFlags()
	if err != nil {
		return v, err
	}
	v.Properties = PropertiesFlags(propBits)

	if v.FullKeywords, err = r.GetString(); err != nil {
		return v, err
	}
	if v.EffectiveKeywords, err = r.GetString(); err != nil {
		return v, err
	}
	return v, nil
}

// finishSkipping advances the cursor over whatever part of the current
// record has not yet been decoded, without constructing values, using the
// same typed skip primitives a full decode would have used field-for-field.
// The cursor position after this equals the position after a full decode.
func (pr *PackageReader) finishSkipping() error {
	if pr.state == StateNone {
		if err := pr.r.SkipString(); err != nil {
			return err
		}
		if err := pr.r.SkipString(); err != nil {
			return err
		}
		pr.state = StateName
	}
	if pr.state == StateName {
		for i := 0; i < 4; i++ {
			if err := pr.r.SkipString(); err != nil {
				return err
			}
		}
		pr.state = StateDescription
	}
	if pr.state == StateDescription {
		sameKeyFlag, err := pr.r.GetFlags()
		if err != nil {
			return err
		}
		if sameKeyFlag != 0 {
			if err := pr.r.SkipNumber(); err != nil {
				return err
			}
		}
		if err := pr.r.SkipVector(func(r *codec.Reader) error {
			return skipVersion(r, sameKeyFlag != 0)
		}); err != nil {
			return err
		}
		pr.state = StateAll
	}
	return nil
}

func skipVersion(r *codec.Reader, sameKey bool) error {
	if err := r.SkipString(); err != nil { // full_version
		return err
	}
	if err := r.SkipString(); err != nil { // slotname
		return err
	}
	if !sameKey {
		if err := r.SkipNumber(); err != nil { // overlay_key
			return err
		}
	}
	if err := r.SkipNumber(); err != nil { // maskflags
		return err
	}
	if err := r.SkipNumber(); err != nil { // keyflags
		return err
	}
	if err := r.SkipVector(func(r *codec.Reader) error {
		if err := r.SkipNumber(); err != nil { // iuse dict index
			return err
		}
		return r.SkipNumber() // iuse flags
	}); err != nil {
		return err
	}
	if err := r.SkipNumber(); err != nil { // restrict
		return err
	}
	if err := r.SkipNumber(); err != nil { // properties
		return err
	}
	if err := r.SkipString(); err != nil { // full_keywords
		return err
	}
	return r.SkipString() // effective_keywords
}

// Skip abandons the current record, advancing to the next one using field
// skippers. Equivalent to calling Next without ever having called
// DecodeUpTo.
func (pr *PackageReader) Skip() error {
	return pr.Next()
}

// Release transfers ownership of the fully decoded current package to the
// caller; the reader's internal copy becomes the zero value and the current
// record is considered consumed. A record not yet fully decoded is first
// decoded up to StateAll.
func (pr *PackageReader) Release() (*Package, error) {
	if pr.state != StateAll {
		if err := pr.DecodeUpTo(StateAll); err != nil {
			return nil, err
		}
	}
	pkg := pr.pkg
	pr.pkg = Package{}
	return &pkg, nil
}
