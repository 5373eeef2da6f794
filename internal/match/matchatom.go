// Package match implements the Matchatom expression tree: the boolean
// And/Or/Not combinators over Leaf string-matching predicates that the eixgo
// query language compiles down to, and the four string-matching algorithms a
// Leaf can use (exact, wildcard, regex, fuzzy). The tree is a single tagged
// struct (a Kind enum selecting which fields are meaningful) rather than an
// interface with multiple implementers, since every node kind needs the same
// Match/String traversal and none carries kind-specific methods.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// BadExpression is returned for a Matchatom the CLI token stream could not
// be parsed into: unbalanced operators, an unknown selector, stray tokens.
var BadExpression = errors.New("bad match expression")

// Selector picks which string field of a Package a Leaf matches against.
type Selector int

const (
	SelectName Selector = iota
	SelectCategory
	// SelectCategoryName matches against "category/name" as one string (eix's
	// -A), for patterns that pin both at once.
	SelectCategoryName
	SelectDescription
	SelectHomepage
	SelectLicense
	SelectProvide
	SelectUse
	SelectInstalled
	// SelectDuplicateVersions matches a package carrying two or more versions
	// with the same version string, usually from overlapping overlays (eix's
	// -D). Algorithm/Pattern are ignored.
	SelectDuplicateVersions
	// SelectUserConfigRedundant matches a package whose package.mask entry
	// has no effect because every version was already masked by the
	// repository itself (eix's -T). Algorithm/Pattern are ignored.
	SelectUserConfigRedundant
)

// Algorithm picks how a Leaf's pattern is compared against the selected
// field.
type Algorithm int

const (
	AlgoExact Algorithm = iota
	AlgoWildcard
	AlgoRegex
	AlgoFuzzy
)

// Candidate is the subset of a Package's fields a Leaf predicate can be
// evaluated against, decoupling match from the index package's decode
// states: callers decide how much of a Package to decode before building a
// Candidate.
type Candidate struct {
	Name        string
	Category    string
	Description string
	Homepage    string
	License     string
	Provide     string
	Use         []string
	Installed   bool
	Duplicated  bool
	Redundant   bool
}

// Matchatom is the tagged union of boolean combinators and leaf predicates.
// Exactly one of the fields is meaningful for any given node, selected by
// Kind.
type Matchatom struct {
	Kind Kind

	// And/Or/Not operands.
	Children []*Matchatom

	// Leaf fields.
	Selector  Selector
	Algorithm Algorithm
	Pattern   string

	compiled    *regexp.Regexp
	fuzzyWindow int
}

// Kind tags which variant a Matchatom node is.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindNot
	KindLeaf
)

// And builds a conjunction. ParsePostfix is the only caller that needs to
// reason about AND/OR precedence; And itself just groups whatever children
// it's given.
func And(children ...*Matchatom) *Matchatom { return &Matchatom{Kind: KindAnd, Children: children} }

// Or builds a disjunction.
func Or(children ...*Matchatom) *Matchatom { return &Matchatom{Kind: KindOr, Children: children} }

// Not negates its single operand.
func Not(child *Matchatom) *Matchatom { return &Matchatom{Kind: KindNot, Children: []*Matchatom{child}} }

// Leaf builds a predicate over one field. FuzzyMax bounds the edit distance
// accepted by AlgoFuzzy; it is ignored by the other algorithms.
func Leaf(sel Selector, algo Algorithm, pattern string, fuzzyMax int) (*Matchatom, error) {
	m := &Matchatom{Kind: KindLeaf, Selector: sel, Algorithm: algo, Pattern: pattern, fuzzyWindow: fuzzyMax}
	if algo == AlgoRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(BadExpression, "invalid regex %q: %v", pattern, err)
		}
		m.compiled = re
	}
	return m, nil
}

// Match evaluates the tree against c, short-circuiting And/Or as soon as the
// result is determined: an And stops at the first false child, an Or stops
// at the first true one, so a Leaf whose field was never decoded on c is
// never evaluated.
func (m *Matchatom) Match(c *Candidate) (bool, error) {
	switch m.Kind {
	case KindAnd:
		for _, child := range m.Children {
			ok, err := child.Match(c)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case KindOr:
		for _, child := range m.Children {
			ok, err := child.Match(c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		ok, err := m.Children[0].Match(c)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case KindLeaf:
		return m.matchLeaf(c)
	default:
		return false, errors.Newf("match: unknown matchatom kind %d", m.Kind)
	}
}

func (m *Matchatom) matchLeaf(c *Candidate) (bool, error) {
	if m.Selector == SelectUse {
		for _, u := range c.Use {
			ok, err := m.compareString(u)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	switch m.Selector {
	case SelectInstalled:
		return c.Installed, nil
	case SelectDuplicateVersions:
		return c.Duplicated, nil
	case SelectUserConfigRedundant:
		return c.Redundant, nil
	}
	return m.compareString(m.fieldValue(c))
}

func (m *Matchatom) fieldValue(c *Candidate) string {
	switch m.Selector {
	case SelectName:
		return c.Name
	case SelectCategory:
		return c.Category
	case SelectCategoryName:
		return c.Category + "/" + c.Name
	case SelectDescription:
		return c.Description
	case SelectHomepage:
		return c.Homepage
	case SelectLicense:
		return c.License
	case SelectProvide:
		return c.Provide
	default:
		return ""
	}
}

func (m *Matchatom) compareString(value string) (bool, error) {
	switch m.Algorithm {
	case AlgoExact:
		return value == m.Pattern, nil
	case AlgoWildcard:
		return wildcardMatch(m.Pattern, value), nil
	case AlgoRegex:
		return m.compiled.MatchString(value), nil
	case AlgoFuzzy:
		return LevenshteinDistance(value, m.Pattern) <= m.fuzzyWindow, nil
	default:
		return false, errors.Newf("match: unknown algorithm %d", m.Algorithm)
	}
}

// FuzzyDistance reports the edit distance used by AlgoFuzzy, for callers
// that post-sort fuzzy results by ascending distance, ties broken by name.
func (m *Matchatom) FuzzyDistance(c *Candidate) int {
	return LevenshteinDistance(m.fieldValue(c), m.Pattern)
}

// wildcardMatch implements shell-style '*' and '?' glob matching, anchored
// at both ends (the whole field must match, as eix's wildcard algorithm
// does; a bare "*" pattern matches everything).
func wildcardMatch(pattern, value string) bool {
	return wildcardMatchAt(pattern, value)
}

func wildcardMatchAt(pattern, value string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse consecutive '*'.
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(value); i++ {
				if wildcardMatchAt(pattern, value[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(value) == 0 {
				return false
			}
			pattern = pattern[1:]
			value = value[1:]
		default:
			if len(value) == 0 || pattern[0] != value[0] {
				return false
			}
			pattern = pattern[1:]
			value = value[1:]
		}
	}
	return len(value) == 0
}

// LevenshteinDistance computes the classic edit distance between a and b
// using a two-row dynamic-programming table (no need to materialize the
// full matrix, since only distance is reported, never the alignment).
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// String renders the tree back to a human-readable infix expression.
func (m *Matchatom) String() string {
	switch m.Kind {
	case KindAnd:
		return joinChildren(m.Children, " AND ")
	case KindOr:
		return joinChildren(m.Children, " OR ")
	case KindNot:
		return "NOT " + m.Children[0].String()
	case KindLeaf:
		return fmt.Sprintf("%s%s%q", selectorName(m.Selector), algorithmOp(m.Algorithm), m.Pattern)
	default:
		return "?"
	}
}

func joinChildren(children []*Matchatom, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

func selectorName(s Selector) string {
	switch s {
	case SelectName:
		return "name"
	case SelectCategory:
		return "category"
	case SelectCategoryName:
		return "category-name"
	case SelectDescription:
		return "description"
	case SelectHomepage:
		return "homepage"
	case SelectLicense:
		return "license"
	case SelectProvide:
		return "provide"
	case SelectUse:
		return "use"
	case SelectInstalled:
		return "installed"
	case SelectDuplicateVersions:
		return "dup-versions"
	case SelectUserConfigRedundant:
		return "test-redundancy"
	default:
		return "?"
	}
}

func algorithmOp(a Algorithm) string {
	switch a {
	case AlgoExact:
		return "=="
	case AlgoWildcard:
		return "~="
	case AlgoRegex:
		return "=~"
	case AlgoFuzzy:
		return "~~"
	default:
		return "?"
	}
}
