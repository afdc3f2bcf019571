package model

import (
	"fmt"

	"statecheck/state"
)

// An Iterable is a lazy, finite, non-restartable sequence of candidate
// successor states: one per binding combination whose guard holds. The caller
// consumes it incrementally (dedup-insert and invariant-check per candidate)
// so a rule with a large quantifier product never materializes all candidates
// at once.
type Iterable struct {
	rule *Rule
	pred *state.State

	odo  odometer
	done bool
}

// Candidates returns the iterable of r applied to the sealed predecessor.
// Binding combinations are enumerated over the Cartesian product of the
// rule's quantifier domains, outermost quantifier first, each domain in
// ascending order. An empty domain makes the whole product empty.
func (r *Rule) Candidates(pred *state.State) *Iterable {
	return &Iterable{
		rule: r,
		pred: pred,
		odo:  newOdometer(r.Quantifiers),
	}
}

// Next yields the next enabled candidate, sealed, with its predecessor set to
// the original state. ok is false when the sequence is exhausted. A guard or
// body fault stops the sequence and is returned wrapped with the rule name
// and bindings.
func (it *Iterable) Next() (*state.State, bool, error) {
	for !it.done {
		b, ok := it.odo.current()
		if !ok {
			it.done = true
			break
		}
		it.odo.advance()

		enabled, err := it.rule.Guard(it.pred, b)
		if err != nil {
			it.done = true
			return nil, false, it.fault("guard", b, err)
		}
		if !enabled {
			continue
		}

		next := it.pred.Clone(it.rule.Name)
		if err := it.rule.Body(next, b); err != nil {
			it.done = true
			return nil, false, it.fault("body", b, err)
		}
		return next.Seal(), true, nil
	}
	return nil, false, nil
}

func (it *Iterable) fault(part string, b Bindings, err error) error {
	if binds := renderBindings(it.rule.Quantifiers, b); binds != "" {
		return fmt.Errorf("rule %q (%s) %s: %w", it.rule.Name, binds, part, err)
	}
	return fmt.Errorf("rule %q %s: %w", it.rule.Name, part, err)
}

// StartStates enumerates every start-state candidate of sr: one sealed blank
// state per binding combination, initializer applied, predecessor nil.
// Enumeration order matches rule candidate order.
func (sr *StartRule) StartStates(widthBits int, visit func(*state.State) error) error {
	odo := newOdometer(sr.Quantifiers)
	for {
		b, ok := odo.current()
		if !ok {
			return nil
		}
		odo.advance()

		s := state.New(widthBits)
		s.SetRule(sr.Name)
		if err := sr.Init(s, b); err != nil {
			if binds := renderBindings(sr.Quantifiers, b); binds != "" {
				return fmt.Errorf("start rule %q (%s): %w", sr.Name, binds, err)
			}
			return fmt.Errorf("start rule %q: %w", sr.Name, err)
		}
		if err := visit(s.Seal()); err != nil {
			return err
		}
	}
}

// odometer walks the Cartesian product of quantifier domains in nested
// ascending order, outermost (first-declared) quantifier as the slowest
// digit.
type odometer struct {
	quants []Quantifier
	idx    []int
	empty  bool
	done   bool
}

func newOdometer(quants []Quantifier) odometer {
	o := odometer{
		quants: quants,
		idx:    make([]int, len(quants)),
	}
	for _, q := range quants {
		if q.Domain.Len() == 0 {
			o.empty = true
		}
	}
	return o
}

func (o *odometer) current() (Bindings, bool) {
	if o.empty || o.done {
		return nil, false
	}
	b := make(Bindings, len(o.quants))
	for i, q := range o.quants {
		b[i] = q.Domain.Value(o.idx[i])
	}
	return b, true
}

func (o *odometer) advance() {
	if o.empty || o.done {
		return
	}
	if len(o.quants) == 0 {
		// The empty product has exactly one (empty) combination.
		o.done = true
		return
	}
	for i := len(o.quants) - 1; i >= 0; i-- {
		o.idx[i]++
		if o.idx[i] < o.quants[i].Domain.Len() {
			return
		}
		o.idx[i] = 0
	}
	o.done = true
}
