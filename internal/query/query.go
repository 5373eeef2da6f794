// Package query drives one search over an index file: reading the header,
// iterating packages lazily against a Matchatom, annotating matches with
// installed-version and user-config state, and sorting fuzzy results.
package query

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/eixgo/eixgo/internal/index"
	"github.com/eixgo/eixgo/internal/installed"
	"github.com/eixgo/eixgo/internal/match"
	"github.com/eixgo/eixgo/internal/userconfig"
)

// DurationRecorder receives one package's decode+match latency. *ui.ScanStats
// satisfies this without query importing ui: --stats wires one in, a plain
// query caller passes nil.
type DurationRecorder interface {
	Record(time.Duration)
}

// Options configures one run of Run.
type Options struct {
	Matcher         *match.Matchatom
	InstalledDB     *installed.DB
	UserConfig      *userconfig.Config
	TestNonMatching bool // -t/--test-non-matching: also report unused package.mask entries
	Stats           DurationRecorder
}

// Result is the outcome of one Run: the matched packages, and, when
// TestNonMatching was set, the set of user-config atoms that matched no
// installed package.
type Result struct {
	Matches        []*index.Package
	Searched       int
	UnusedEntries  []string
}

// Run iterates every package in f, testing each against opts.Matcher at
// increasing decode depth: a package whose name alone cannot satisfy any
// leaf is rejected without ever decoding its versions, and evaluation never
// touches a field that was not yet decoded.
func Run(f *index.File, opts Options) (*Result, error) {
	res := &Result{}
	installedSeen := make(map[string]bool)

	for f.Reader.HasNext() {
		if err := f.Reader.Next(); err != nil {
			return nil, errors.Wrap(err, "query: advancing package reader")
		}
		res.Searched++
		start := time.Now()

		if err := f.Reader.DecodeUpTo(index.StateDescription); err != nil {
			return nil, errors.Wrap(err, "query: decoding package description")
		}
		pkg := f.Reader.Package()

		cand := candidateFromPackage(pkg, nil, opts.InstalledDB, opts.UserConfig)
		ok, err := matchesAtDepth(opts.Matcher, cand)
		if err != nil {
			return nil, err
		}
		if !ok {
			// cheap reject: never pay for version decode.
			recordElapsed(opts.Stats, start)
			continue
		}

		if err := f.Reader.DecodeUpTo(index.StateAll); err != nil {
			return nil, errors.Wrap(err, "query: decoding package versions")
		}
		pkg = f.Reader.Package()

		fullCand := candidateFromPackage(pkg, pkg.Versions, opts.InstalledDB, opts.UserConfig)
		matched, err := opts.Matcher.Match(fullCand)
		if err != nil {
			return nil, err
		}
		if !matched {
			recordElapsed(opts.Stats, start)
			continue
		}

		annotate(pkg, opts.InstalledDB, opts.UserConfig)
		if opts.InstalledDB != nil && opts.InstalledDB.IsInstalled(pkg.Category, pkg.Name) {
			installedSeen[pkg.Category+"/"+pkg.Name] = true
		}

		out, err := f.Reader.Release()
		if err != nil {
			return nil, err
		}
		res.Matches = append(res.Matches, out)
		recordElapsed(opts.Stats, start)
	}

	if isFuzzy(opts.Matcher) {
		sortFuzzy(res.Matches, opts.Matcher)
	}

	if opts.TestNonMatching && opts.UserConfig != nil {
		res.UnusedEntries = findUnusedEntries(opts.UserConfig, installedSeen)
	}
	return res, nil
}

// matchesAtDepth evaluates the matcher with only name/category/description
// available; a nil matcher passes everything through. It is used purely as
// a pre-filter before decoding versions, so it must never report false for
// a tree that could still match once versions are available — hence
// returning true whenever the tree references anything beyond the
// name/category/description/homepage/license/provide fields already
// present in cand.
func matchesAtDepth(m *match.Matchatom, cand *match.Candidate) (bool, error) {
	if m == nil {
		return true, nil
	}
	if referencesOnlyDescriptiveFields(m) {
		return m.Match(cand)
	}
	return true, nil
}

// referencesOnlyDescriptiveFields reports whether every leaf in m selects a
// field already available on a Description-depth Candidate (name, category,
// description, homepage, license, provide), so evaluating m early cannot
// wrongly reject a package whose match actually depends on use/installed
// state.
func referencesOnlyDescriptiveFields(m *match.Matchatom) bool {
	switch m.Kind {
	case match.KindLeaf:
		switch m.Selector {
		case match.SelectName, match.SelectCategory, match.SelectCategoryName, match.SelectDescription,
			match.SelectHomepage, match.SelectLicense, match.SelectProvide:
			return true
		default:
			return false
		}
	case match.KindNot:
		return referencesOnlyDescriptiveFields(m.Children[0])
	default:
		for _, c := range m.Children {
			if !referencesOnlyDescriptiveFields(c) {
				return false
			}
		}
		return true
	}
}

func candidateFromPackage(pkg *index.Package, versions []index.Version, db *installed.DB, cfg *userconfig.Config) *match.Candidate {
	c := &match.Candidate{
		Name:        pkg.Name,
		Category:    pkg.Category,
		Description: pkg.Desc,
		Homepage:    pkg.Homepage,
		License:     pkg.Licenses,
		Provide:     pkg.Provide,
	}
	if db != nil {
		c.Installed = db.IsInstalled(pkg.Category, pkg.Name)
	}
	seen := make(map[string]bool)
	for _, v := range versions {
		for _, iu := range v.IUse {
			if !seen[iu.Name] {
				seen[iu.Name] = true
				c.Use = append(c.Use, iu.Name)
			}
		}
	}
	c.Duplicated = hasDuplicateVersions(versions)
	c.Redundant = isUserConfigRedundant(pkg, versions, cfg)
	return c
}

// hasDuplicateVersions reports whether pkg carries two or more versions with
// the same version string, the usual symptom of overlapping overlays (-D).
func hasDuplicateVersions(versions []index.Version) bool {
	seen := make(map[string]bool, len(versions))
	for _, v := range versions {
		if seen[v.FullVersion] {
			return true
		}
		seen[v.FullVersion] = true
	}
	return false
}

// isUserConfigRedundant reports whether pkg has a package.mask entry that
// has no actual effect because every version was already masked by the
// repository itself (-T): the user's override suppresses nothing a default
// configuration wasn't already suppressing.
func isUserConfigRedundant(pkg *index.Package, versions []index.Version, cfg *userconfig.Config) bool {
	if cfg == nil || len(versions) == 0 || !cfg.IsMasked(pkg.Category, pkg.Name) {
		return false
	}
	for _, v := range versions {
		if !(v.Mask.IsHardMasked() || v.Mask.IsProfileMask()) {
			return false
		}
	}
	return true
}

// annotate fills in Package.InstalledVersions and applies the package.mask
// override (forcing MaskPackageMask) after matching: these flags are computed
// post-iteration, never baked into the index itself. package.keywords and
// package.use entries are not applied.
func annotate(pkg *index.Package, db *installed.DB, cfg *userconfig.Config) {
	if db != nil {
		entries := db.Versions(pkg.Category, pkg.Name)
		versions := make([]string, len(entries))
		for i, e := range entries {
			versions[i] = e.Version
		}
		pkg.InstalledVersions = joinSpace(versions)
	}
	if cfg != nil && cfg.IsMasked(pkg.Category, pkg.Name) {
		for i := range pkg.Versions {
			pkg.Versions[i].Mask |= index.MaskPackageMask
		}
	}
}

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func recordElapsed(rec DurationRecorder, start time.Time) {
	if rec != nil {
		rec.Record(time.Since(start))
	}
}

// FuzzyDistances returns the fuzzy edit distance of every match against the
// matcher's first fuzzy leaf, for --stats to plot; nil when m has no fuzzy
// leaf.
func FuzzyDistances(matches []*index.Package, m *match.Matchatom) []float64 {
	leaf := firstFuzzyLeaf(m)
	if leaf == nil {
		return nil
	}
	out := make([]float64, len(matches))
	for i, pkg := range matches {
		out[i] = float64(leaf.FuzzyDistance(&match.Candidate{Name: pkg.Name}))
	}
	return out
}

func isFuzzy(m *match.Matchatom) bool {
	if m == nil {
		return false
	}
	if m.Kind == match.KindLeaf {
		return m.Algorithm == match.AlgoFuzzy
	}
	for _, c := range m.Children {
		if isFuzzy(c) {
			return true
		}
	}
	return false
}

// sortFuzzy orders matches by ascending edit distance against the first
// fuzzy leaf found in m, ties broken by name.
func sortFuzzy(pkgs []*index.Package, m *match.Matchatom) {
	leaf := firstFuzzyLeaf(m)
	if leaf == nil {
		return
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		di := leaf.FuzzyDistance(&match.Candidate{Name: pkgs[i].Name})
		dj := leaf.FuzzyDistance(&match.Candidate{Name: pkgs[j].Name})
		if di != dj {
			return di < dj
		}
		return pkgs[i].Name < pkgs[j].Name
	})
}

func firstFuzzyLeaf(m *match.Matchatom) *match.Matchatom {
	if m == nil {
		return nil
	}
	if m.Kind == match.KindLeaf && m.Algorithm == match.AlgoFuzzy {
		return m
	}
	for _, c := range m.Children {
		if leaf := firstFuzzyLeaf(c); leaf != nil {
			return leaf
		}
	}
	return nil
}

// findUnusedEntries reports every package.mask entry in cfg that named a
// category/name no installed package matched during this run. Entries of
// package.keywords and package.use are not checked.
func findUnusedEntries(cfg *userconfig.Config, seen map[string]bool) []string {
	var unused []string
	for _, key := range cfg.AllMaskKeys() {
		if !seen[key] {
			unused = append(unused, "package.mask: "+key)
		}
	}
	sort.Strings(unused)
	return unused
}
