package model

import (
	"errors"
	"fmt"

	"statecheck/state"
)

// Callback shapes for the generated tables. All three receive sealed or
// under-construction states and report model-level faults (such as reads of
// undefined values) as errors; the checker wraps and propagates those the
// same way as invariant violations.
type (
	// Guard decides whether a rule is enabled in a state. It must not
	// mutate the state.
	Guard func(s *state.State, b Bindings) (bool, error)

	// Body mutates a freshly cloned, unsealed successor in place.
	Body func(s *state.State, b Bindings) error

	// Initializer populates a blank, unsealed start state in place.
	Initializer func(s *state.State, b Bindings) error

	// Predicate is a safety property over a sealed state. It must not
	// mutate the state.
	Predicate func(s *state.State) (bool, error)
)

// A Rule is one guarded, quantified transition of the model.
type Rule struct {
	Name        string
	Quantifiers []Quantifier
	Guard       Guard
	Body        Body
}

// A StartRule produces the initial states of the model: one candidate per
// binding combination, from a blank buffer, with no guard.
type StartRule struct {
	Name        string
	Quantifiers []Quantifier
	Init        Initializer
}

// An Invariant is a named safety property required to hold on every reachable
// state.
type Invariant struct {
	Name string
	Pred Predicate
}

// A Model is the complete read-only input to the checker: the state encoding
// width, the three tables in declaration order, and an optional renderer used
// when printing states in traces. The tables are bound at construction and
// never mutated during a run.
type Model struct {
	Name      string
	WidthBits int

	Starts     []StartRule
	Rules      []Rule
	Invariants []Invariant

	// Render turns a state into the model's own field-level text form.
	// When nil, states render as raw hex.
	Render func(s *state.State) string
}

var errNoStarts = errors.New("model: model has no start rules")

// Validate checks structural well-formedness of the tables: the model must
// have at least one start rule, a positive width, and a name on every table
// entry.
func (m *Model) Validate() error {
	if m.WidthBits <= 0 {
		return fmt.Errorf("model %q: state width must be positive, got %d", m.Name, m.WidthBits)
	}
	if len(m.Starts) == 0 {
		return fmt.Errorf("%w: %q", errNoStarts, m.Name)
	}
	for i, s := range m.Starts {
		if s.Name == "" {
			return fmt.Errorf("model %q: start rule %d has no name", m.Name, i)
		}
		if s.Init == nil {
			return fmt.Errorf("model %q: start rule %q has no initializer", m.Name, s.Name)
		}
	}
	for i, r := range m.Rules {
		if r.Name == "" {
			return fmt.Errorf("model %q: rule %d has no name", m.Name, i)
		}
		if r.Guard == nil || r.Body == nil {
			return fmt.Errorf("model %q: rule %q missing guard or body", m.Name, r.Name)
		}
	}
	for i, inv := range m.Invariants {
		if inv.Name == "" {
			return fmt.Errorf("model %q: invariant %d has no name", m.Name, i)
		}
		if inv.Pred == nil {
			return fmt.Errorf("model %q: invariant %q has no predicate", m.Name, inv.Name)
		}
	}
	return nil
}

// RenderState applies the model renderer, falling back to hex.
func (m *Model) RenderState(s *state.State) string {
	if m.Render != nil {
		return m.Render(s)
	}
	return s.String()
}
