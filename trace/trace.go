package trace

import (
	"fmt"
	"io"
	"strings"

	"statecheck/model"
	"statecheck/state"
)

// A Trace is the counterexample leading to a violating state: the chain of
// predecessor back-references walked from the failing state to its start
// state, reversed into discovery order. Step 0 is the start state and the
// final step is the failing state.
type Trace struct {
	Steps []*state.State
}

// FromState reconstructs the trace ending in failing by walking its
// predecessor chain. The chain is finite and acyclic because every
// predecessor was sealed strictly before its successor was constructed.
func FromState(failing *state.State) *Trace {
	var chain []*state.State
	for s := failing; s != nil; s = s.Predecessor() {
		chain = append(chain, s)
	}
	// Reverse into root-to-failure order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return &Trace{Steps: chain}
}

// Len returns the number of rule applications in the trace, which equals the
// number of predecessor hops from the failing state.
func (t *Trace) Len() int {
	return len(t.Steps) - 1
}

// Write renders the trace, one block per step: the step index, the rule that
// produced the state, and the model's rendering of the state.
func (t *Trace) Write(w io.Writer, m *model.Model) {
	for i, s := range t.Steps {
		if i == 0 {
			fmt.Fprintf(w, "State %d: start state %q\n", i, s.Rule())
		} else {
			fmt.Fprintf(w, "State %d: rule %q\n", i, s.Rule())
		}
		fmt.Fprintf(w, "%s\n", m.RenderState(s))
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}
}

// Verify replays the trace against the model's tables: the first step must be
// producible by some start rule, and every consecutive pair must be related
// by some rule's guard-then-body. Used by tests to confirm a reported
// counterexample is real.
func Verify(m *model.Model, t *Trace) error {
	if len(t.Steps) == 0 {
		return fmt.Errorf("trace: empty trace")
	}

	first := t.Steps[0]
	if first.Predecessor() != nil {
		return fmt.Errorf("trace: step 0 has a predecessor")
	}
	found := false
	for i := range m.Starts {
		err := m.Starts[i].StartStates(m.WidthBits, func(s *state.State) error {
			if s.Equal(first) {
				found = true
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("trace: replaying start rules: %w", err)
		}
	}
	if !found {
		return fmt.Errorf("trace: step 0 is not producible by any start rule")
	}

	for i := 1; i < len(t.Steps); i++ {
		prev, cur := t.Steps[i-1], t.Steps[i]
		if !stepRelated(m, prev, cur) {
			return fmt.Errorf("trace: no enabled rule relates step %d to step %d", i-1, i)
		}
	}
	return nil
}

func stepRelated(m *model.Model, prev, cur *state.State) bool {
	for i := range m.Rules {
		it := m.Rules[i].Candidates(prev)
		for {
			cand, ok, err := it.Next()
			if err != nil || !ok {
				break
			}
			if cand.Equal(cur) {
				return true
			}
		}
	}
	return false
}
