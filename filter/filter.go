// Package filter selects the tests to run from glob expressions.
//
// Expressions are evaluated in order and the first applicable one decides:
// a plain pattern applies when the name matches it and selects the test, a
// pattern negated with a leading "!" applies when the name matches it and
// excludes the test. A name no expression applies to is selected only when
// there are no plain patterns.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/perfgo/dgtest/model"
)

// NegationMarker prefixes an expression that excludes matching tests.
const NegationMarker = "!"

// ErrInvalidPattern is returned for expressions that do not compile.
var ErrInvalidPattern = errors.New("invalid filter pattern")

type clause struct {
	expr    string
	negated bool
	pattern glob.Glob
}

// Filter is a compiled list of filter expressions.
type Filter struct {
	clauses     []clause
	hasPositive bool
}

// Result is the outcome of applying a Filter to a candidate set.
type Result struct {
	Selected []model.TestUnit
	// Number of candidates excluded by the expressions
	Blocked int
}

// New compiles the expressions. Empty expressions are ignored.
func New(exprs []string) (*Filter, error) {
	f := &Filter{}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		negated := strings.HasPrefix(expr, NegationMarker)
		pattern := strings.TrimSpace(strings.TrimPrefix(expr, NegationMarker))
		if pattern == "" {
			continue
		}
		if negated {
			expr = NegationMarker + pattern
		}

		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, expr, err)
		}

		f.clauses = append(f.clauses, clause{expr: expr, negated: negated, pattern: g})
		if !negated {
			f.hasPositive = true
		}
	}
	return f, nil
}

// Empty reports whether the filter selects everything.
func (f *Filter) Empty() bool {
	return len(f.clauses) == 0
}

// Match reports whether the test name is selected.
func (f *Filter) Match(name string) bool {
	for _, c := range f.clauses {
		if c.pattern.Match(name) {
			return !c.negated
		}
	}
	return !f.hasPositive
}

// Apply splits the candidates into selected units and a count of blocked ones.
// The order of the selected units follows the candidates.
func (f *Filter) Apply(candidates []model.TestUnit) Result {
	var res Result
	for _, unit := range candidates {
		if f.Match(unit.Name) {
			res.Selected = append(res.Selected, unit)
		} else {
			res.Blocked++
		}
	}
	return res
}

// String returns the expressions joined by spaces.
func (f *Filter) String() string {
	exprs := make([]string, len(f.clauses))
	for i, c := range f.clauses {
		exprs[i] = c.expr
	}
	return strings.Join(exprs, " ")
}
