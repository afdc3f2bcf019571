package checker

import (
	"fmt"
	"io"
	"time"

	"statecheck/model"
	"statecheck/state"
	"statecheck/trace"
)

// Verdict is the terminal state of a run.
type Verdict int

const (
	// Completed means the reachable state space was explored exhaustively
	// and every state passed every invariant.
	Completed Verdict = iota

	// Failed means a reachable state violated an invariant or a rule
	// faulted while constructing a successor.
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Result is the outcome of one exploration run. For a fixed model and thread
// count the Verdict and StatesDiscovered are deterministic; which particular
// violation populates Culprit when several are reachable concurrently is not.
type Result struct {
	Model   *model.Model
	Verdict Verdict

	StatesDiscovered uint64
	Elapsed          time.Duration

	// Set only when Verdict is Failed.
	Culprit      string
	Err          error
	FailingState *state.State
}

// Counterexample reconstructs the trace from the start state to the failing
// state. Nil unless the run failed with a concrete failing state.
func (r *Result) Counterexample() *trace.Trace {
	if r.Verdict != Failed || r.FailingState == nil {
		return nil
	}
	return trace.FromState(r.FailingState)
}

// Write renders the result for the reporting sink: a one-line summary on
// success, or the full counterexample dump followed by the responsible rule
// or invariant name on failure.
func (r *Result) Write(w io.Writer) {
	if r.Verdict == Completed {
		fmt.Fprintf(w, "%d states covered in %s, no errors found\n",
			r.StatesDiscovered, r.Elapsed.Round(time.Millisecond))
		return
	}
	if t := r.Counterexample(); t != nil {
		t.Write(w, r.Model)
	}
	fmt.Fprintf(w, "%v\n", r.Err)
	fmt.Fprintf(w, "%d states covered\n", r.StatesDiscovered)
}
