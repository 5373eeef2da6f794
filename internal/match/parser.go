package match

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ParsePostfix builds a Matchatom tree from the dash-flag Matchatom CLI
// grammar: a left-to-right stream of leaf tokens interspersed with the -o/-a
// combinators, e.g. "-e -s eix" or "-S -r ^foo -o -f 2 -s editor".
//
// A leaf is built from sticky selector/algorithm flags followed by its
// pattern argument:
//
//	-s/-S/-C/-A/-L/-H/-P   which field to match (sticky until changed)
//	-f[k]/-r/-e/-p         which comparison algorithm to use (sticky)
//	-I/-D/-T               standalone criteria; each completes a leaf on its
//	                       own, with no selector/algorithm/pattern
//	-!                     negate the next leaf
//	-o/-a                  combine the expression built so far with whatever
//	                       follows; two leaves with no combinator between
//	                       them default to AND, and AND binds tighter than OR
//
// Parsing is a three-state machine: expectLeafOrOp is ready to start a leaf,
// or to see a combinator once an operand is pending; inLeaf accumulates
// sticky selector/algorithm flags until the pattern argument arrives;
// expectOperand has just consumed an explicit combinator and must see the
// start of the next leaf. A malformed sequence (a combinator with no operand
// on one side, a leaf with no pattern, a dangling -!) yields BadExpression
// naming the offending token's position.
func ParsePostfix(tokens []string) (*Matchatom, error) {
	p := &postfixParser{tokens: tokens, selector: SelectName, algorithm: AlgoWildcard, fuzzyMax: 2}
	return p.parse()
}

type parseState int

const (
	stateExpectLeafOrOp parseState = iota
	stateInLeaf
	stateExpectOperand
)

// postfixParser walks tokens once, left to right, maintaining the sticky
// selector/algorithm a leaf inherits if it doesn't override them, and a
// two-stack (operand/operator) precedence-climbing reduction so that AND
// binds tighter than OR regardless of how -o/-a are interleaved.
type postfixParser struct {
	tokens []string
	pos    int

	operands  []*Matchatom
	operators []Kind

	state      parseState
	leafStart  int
	sawOperand bool
	pendingNot bool

	selector  Selector
	algorithm Algorithm
	fuzzyMax  int
}

func (p *postfixParser) parse() (*Matchatom, error) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch p.state {
		case stateExpectLeafOrOp:
			if tok == "-o" || tok == "-a" {
				if !p.sawOperand {
					return nil, p.errf("combinator %q with no preceding expression", tok)
				}
				p.pushOperator(combinatorKind(tok))
				p.sawOperand = false
				p.pos++
				p.state = stateExpectOperand
				continue
			}
			if p.sawOperand {
				// Adjacent leaves with no explicit combinator default to AND.
				p.pushOperator(KindAnd)
				p.sawOperand = false
			}
			if err := p.startLeaf(); err != nil {
				return nil, err
			}
		case stateExpectOperand:
			if tok == "-o" || tok == "-a" {
				return nil, p.errf("combinator %q with no right-hand expression", tok)
			}
			if err := p.startLeaf(); err != nil {
				return nil, err
			}
		case stateInLeaf:
			if err := p.continueLeaf(); err != nil {
				return nil, err
			}
		}
	}

	switch p.state {
	case stateInLeaf:
		return nil, errors.Wrapf(BadExpression, "leaf starting at token %d is missing its pattern", p.leafStart+1)
	case stateExpectOperand:
		return nil, errors.Wrap(BadExpression, "expression ends with a combinator awaiting its right-hand side")
	}
	if p.pendingNot {
		return nil, errors.Wrap(BadExpression, "-! with no following leaf")
	}
	if !p.sawOperand && len(p.operands) == 0 {
		return nil, errors.Wrap(BadExpression, "empty expression")
	}
	for len(p.operators) > 0 {
		p.reduceTop()
	}
	if len(p.operands) != 1 {
		return nil, errors.Wrapf(BadExpression, "expression left %d operands, want 1", len(p.operands))
	}
	return p.operands[0], nil
}

// startLeaf consumes the token that begins a new leaf (or the -! that
// precedes one). Called only from expectLeafOrOp/expectOperand.
func (p *postfixParser) startLeaf() error {
	tok := p.tokens[p.pos]
	switch tok {
	case "-!":
		if p.pendingNot {
			return p.errf("-! specified twice in a row")
		}
		p.pendingNot = true
		p.pos++
		return nil
	case "-I":
		p.pos++
		return p.completeStandaloneLeaf(SelectInstalled)
	case "-D":
		p.pos++
		return p.completeStandaloneLeaf(SelectDuplicateVersions)
	case "-T":
		p.pos++
		return p.completeStandaloneLeaf(SelectUserConfigRedundant)
	case "-o", "-a":
		return p.errf("combinator %q where a leaf was expected", tok)
	}

	if sel, ok := selectorFlag(tok); ok {
		p.selector = sel
		p.pos++
		p.leafStart = p.pos - 1
		p.state = stateInLeaf
		return nil
	}
	handled, err := p.consumeAlgorithmFlag()
	if err != nil {
		return err
	}
	if handled {
		p.leafStart = p.pos - 1
		p.state = stateInLeaf
		return nil
	}
	if strings.HasPrefix(tok, "-") {
		return p.errf("unknown matchatom flag %q", tok)
	}

	// A bare (non-flag) token is the pattern itself, using whatever
	// selector/algorithm are currently sticky.
	leaf, err := Leaf(p.selector, p.algorithm, tok, p.fuzzyMax)
	if err != nil {
		return err
	}
	p.pos++
	p.completeLeaf(leaf)
	return nil
}

// continueLeaf consumes one token while accumulating a leaf's selector and
// algorithm flags, completing it once the pattern argument arrives.
func (p *postfixParser) continueLeaf() error {
	tok := p.tokens[p.pos]
	if sel, ok := selectorFlag(tok); ok {
		p.selector = sel
		p.pos++
		return nil
	}
	handled, err := p.consumeAlgorithmFlag()
	if err != nil {
		return err
	}
	if handled {
		return nil
	}
	if strings.HasPrefix(tok, "-") {
		return p.errf("flag %q is not valid here (pattern for the current leaf not given yet)", tok)
	}

	leaf, err := Leaf(p.selector, p.algorithm, tok, p.fuzzyMax)
	if err != nil {
		return err
	}
	p.pos++
	p.completeLeaf(leaf)
	return nil
}

// completeStandaloneLeaf builds a leaf for one of -I/-D/-T, which need no
// selector/algorithm/pattern of their own.
func (p *postfixParser) completeStandaloneLeaf(sel Selector) error {
	leaf, err := Leaf(sel, AlgoExact, "", 0)
	if err != nil {
		return err
	}
	p.completeLeaf(leaf)
	return nil
}

// completeLeaf applies any pending -! negation, pushes the leaf as the most
// recent operand, and returns the state machine to expectLeafOrOp.
func (p *postfixParser) completeLeaf(leaf *Matchatom) {
	if p.pendingNot {
		leaf = Not(leaf)
		p.pendingNot = false
	}
	p.operands = append(p.operands, leaf)
	p.sawOperand = true
	p.state = stateExpectLeafOrOp
}

// consumeAlgorithmFlag consumes tok at the current position if it's one of
// -e/-r/-p/-f[k], updating the sticky algorithm. -f optionally consumes the
// following token as its fuzzy distance if it parses as an integer.
func (p *postfixParser) consumeAlgorithmFlag() (bool, error) {
	switch p.tokens[p.pos] {
	case "-e":
		p.algorithm = AlgoExact
		p.pos++
		return true, nil
	case "-r":
		p.algorithm = AlgoRegex
		p.pos++
		return true, nil
	case "-p":
		p.algorithm = AlgoWildcard
		p.pos++
		return true, nil
	case "-f":
		p.algorithm = AlgoFuzzy
		p.fuzzyMax = 2
		p.pos++
		if p.pos < len(p.tokens) {
			if k, err := strconv.Atoi(p.tokens[p.pos]); err == nil {
				p.fuzzyMax = k
				p.pos++
			}
		}
		return true, nil
	}
	return false, nil
}

func selectorFlag(tok string) (Selector, bool) {
	switch tok {
	case "-s":
		return SelectName, true
	case "-S":
		return SelectDescription, true
	case "-C":
		return SelectCategory, true
	case "-A":
		return SelectCategoryName, true
	case "-L":
		return SelectLicense, true
	case "-H":
		return SelectHomepage, true
	case "-P":
		return SelectProvide, true
	}
	return 0, false
}

func combinatorKind(tok string) Kind {
	if tok == "-a" {
		return KindAnd
	}
	return KindOr
}

// precedence ranks AND above OR, so pushOperator reduces any pending
// operator of equal or higher precedence before pushing a new one: the
// textbook two-stack shunting-yard approach for a two-level grammar.
func precedence(k Kind) int {
	if k == KindAnd {
		return 2
	}
	return 1
}

func (p *postfixParser) pushOperator(op Kind) {
	for len(p.operators) > 0 && precedence(p.operators[len(p.operators)-1]) >= precedence(op) {
		p.reduceTop()
	}
	p.operators = append(p.operators, op)
}

func (p *postfixParser) reduceTop() {
	op := p.operators[len(p.operators)-1]
	p.operators = p.operators[:len(p.operators)-1]
	n := len(p.operands)
	lhs, rhs := p.operands[n-2], p.operands[n-1]
	p.operands = p.operands[:n-2]
	if op == KindAnd {
		p.operands = append(p.operands, And(lhs, rhs))
	} else {
		p.operands = append(p.operands, Or(lhs, rhs))
	}
}

func (p *postfixParser) errf(format string, args ...any) error {
	return errors.Wrapf(BadExpression, "token %d: "+format, append([]any{p.pos + 1}, args...)...)
}
