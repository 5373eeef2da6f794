// Package index implements the in-memory package/version model, the binary
// DBHeader, and the streaming PackageReader/Writer pair that form the core
// of the eixgo index format.
//
// A Package holds an ordered slice of Version, since one index record
// always describes every version of a package read back at once, not a
// single version being built.
package index

// MaskFlags is a bitset of hard/profile/package masking predicates for one
// Version.
type MaskFlags uint8

const (
	MaskHardMasked MaskFlags = 1 << iota
	MaskProfileMask
	MaskPackageMask
)

// IsHardMasked reports whether this version is masked by the repository
// itself (profiles/, package.mask shipped with the tree).
func (f MaskFlags) IsHardMasked() bool { return f&MaskHardMasked != 0 }

// IsProfileMask reports whether the active profile masks this version.
func (f MaskFlags) IsProfileMask() bool { return f&MaskProfileMask != 0 }

// IsPackageMask reports whether the user's package.mask masks this version.
func (f MaskFlags) IsPackageMask() bool { return f&MaskPackageMask != 0 }

// KeywordsState tags the architecture-acceptance state of a Version's
// keywords for the current profile/arch.
type KeywordsState uint8

const (
	KeywordsStable KeywordsState = iota
	KeywordsUnstable
	KeywordsMinusKeyword
	KeywordsAlienStable
	KeywordsAlienUnstable
	KeywordsMinusAsterisk
	KeywordsMissing
)

// KeywordsFlags is the resolved keyword state of a Version. The two raw
// keyword strings it was computed from are Version.FullKeywords and
// Version.EffectiveKeywords.
type KeywordsFlags struct {
	State KeywordsState
}

// IsStable reports the keyword state. A version never simultaneously
// satisfies IsStable and IsUnstable.
func (k KeywordsFlags) IsStable() bool { return k.State == KeywordsStable || k.State == KeywordsAlienStable }

// IsUnstable reports the keyword state.
func (k KeywordsFlags) IsUnstable() bool {
	return k.State == KeywordsUnstable || k.State == KeywordsAlienUnstable
}

// IUseFlag is the tri-state default of one use-flag declaration.
type IUseFlag uint8

const (
	IUseNormal IUseFlag = iota
	IUsePlus
	IUseMinus
)

// IUse is one use-flag declaration exposed by a Version.
type IUse struct {
	Name  string
	Flags IUseFlag
}

// RestrictFlags is a bitmask of RESTRICT tokens, named as in ebuild(5).
type RestrictFlags uint16

const (
	RestrictBinChecks RestrictFlags = 1 << iota
	RestrictStrip
	RestrictTest
	RestrictUserPriv
	RestrictInstallSources
	RestrictFetch
	RestrictMirror
	RestrictPrimaryURI
	RestrictBinDist
	RestrictParallel
)

// PropertiesFlags is a bitmask of PROPERTIES tokens.
type PropertiesFlags uint8

const (
	PropertiesInteractive PropertiesFlags = 1 << iota
	PropertiesLive
	PropertiesVirtual
	PropertiesSet
)

// Version is one release of a Package: a ExtendedVersion in spec terms.
type Version struct {
	FullVersion   string
	SlotName      string
	OverlayKey    int
	Mask          MaskFlags
	Keywords      KeywordsFlags
	IUse          []IUse
	Restrict      RestrictFlags
	Properties    PropertiesFlags
	FullKeywords  string
	EffectiveKeywords string
}

// Package is a named distribution with its ordered versions. Versions is
// never empty for a fully decoded Package; category/name are hoisted to the
// Package itself since every version of one Package shares them.
type Package struct {
	Category string
	Name     string
	Desc     string
	Homepage string
	Licenses string
	Provide  string
	Versions []Version

	HaveSameOverlayKey bool
	OverlayKey         int

	// InstalledVersions is filled in late by the query driver from
	// InstalledPackageDB, after matching, never by the reader/writer.
	InstalledVersions string
}

// OverlayIdent identifies one supplementary package tree layered over the
// main one. Index 0 in DBHeader.Overlays is always the main tree.
type OverlayIdent struct {
	Path  string
	Label string
}
