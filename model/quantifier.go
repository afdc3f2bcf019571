package model

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// A Domain is a finite, ordered, enumerable set of values a quantifier ranges
// over. Enumeration order is fixed: Value(0) through Value(Len()-1),
// ascending. A domain may be empty, in which case any rule quantified over it
// produces no candidates.
type Domain interface {
	Len() int
	Value(i int) int64
	Render(v int64) string
}

// A Quantifier binds a name to a domain. Rules, start rules and invariant
// helpers are parameterized by an ordered list of quantifiers; candidate
// enumeration walks their Cartesian product outermost-first.
type Quantifier struct {
	Name   string
	Domain Domain
}

// IntRange is the inclusive integer range [Lo, Hi]. Lo > Hi is the empty
// domain.
type IntRange struct {
	Lo, Hi int64
}

func (r IntRange) Len() int {
	if r.Hi < r.Lo {
		return 0
	}
	return int(r.Hi - r.Lo + 1)
}

func (r IntRange) Value(i int) int64 { return r.Lo + int64(i) }

func (r IntRange) Render(v int64) string { return fmt.Sprintf("%d", v) }

// Enum is a finite set of named constants, enumerated in declaration order.
// The value of a member is its declaration index.
type Enum struct {
	Members []string
}

func (e Enum) Len() int { return len(e.Members) }

func (e Enum) Value(i int) int64 { return int64(i) }

func (e Enum) Render(v int64) string {
	if v >= 0 && int(v) < len(e.Members) {
		return e.Members[v]
	}
	return fmt.Sprintf("<enum %d>", v)
}

// Scalarset is a bounded set of interchangeable identities 0..Size-1, the
// Murphi scalarset type. Symmetry reduction over it is out of scope; it
// enumerates like a plain range.
type Scalarset struct {
	Size int64
}

func (s Scalarset) Len() int { return int(s.Size) }

func (s Scalarset) Value(i int) int64 { return int64(i) }

func (s Scalarset) Render(v int64) string { return fmt.Sprintf("id_%d", v) }

// Range builds an inclusive IntRange from any integer-typed bounds.
func Range[T constraints.Integer](lo, hi T) IntRange {
	return IntRange{Lo: int64(lo), Hi: int64(hi)}
}

// Bindings holds one concrete value per quantifier, in quantifier declaration
// order.
type Bindings []int64

// Bind renders the bindings against their quantifiers, for trace and error
// output.
func renderBindings(quants []Quantifier, b Bindings) string {
	if len(b) == 0 {
		return ""
	}
	out := ""
	for i, q := range quants {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s", q.Name, q.Domain.Render(b[i]))
	}
	return out
}
