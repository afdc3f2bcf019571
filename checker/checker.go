package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"statecheck/config"
	"statecheck/metrics"
	"statecheck/model"
	"statecheck/queue"
	"statecheck/set"
	"statecheck/state"
)

// Returned for defects in the core itself (a termination-protocol breach),
// as opposed to findings about the model.
var ErrInternal = errors.New("checker: internal consistency fault")

// A Checker exhaustively explores the reachable state space of one model with
// a fixed pool of workers and reports the first invariant violation or rule
// fault found, or completion statistics if none is reachable.
//
// The run is a state machine: seeding inserts and checks every start state
// before any rule is applied; the running phase drains the work queue until
// it is exhausted by all workers or a violation aborts it.
type Checker struct {
	m   *model.Model
	cfg config.Config
	log *slog.Logger
	met *metrics.Metrics

	seen *set.Set
	q    *queue.Queue

	aborted    atomic.Bool
	failOnce   sync.Once
	fail       *failure
	discovered atomic.Uint64

	begin time.Time
}

// failure is the single-slot first-failure record. Exactly one concurrent
// failure ever claims it; later ones are discarded without effect.
type failure struct {
	state   *state.State // failing state, nil when none was constructed
	culprit string       // offending rule or invariant name
	err     error
	fatal   bool // exhaustion or internal fault rather than a finding
}

// An Option adjusts checker construction.
type Option func(*Checker)

// WithLogger installs the logger used for progress and summary reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// WithMetrics installs Prometheus collectors updated during the run.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) { c.met = m }
}

// New binds the model tables and configuration for one run. The tables are
// read-only for the remainder of the run.
func New(m *model.Model, cfg config.Config, opts ...Option) (*Checker, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Checker{
		m:   m,
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run explores the model's state space to exhaustion or first failure. The
// returned Result carries the verdict; a non-nil error means the run itself
// broke (set exhaustion, internal fault, context cancellation) and no verdict
// was reached.
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	c.seen = set.New(c.cfg.SetCapacity, c.cfg.SetExpandThreshold, c.cfg.SetMaxCapacity)
	c.q = queue.New(c.cfg.Threads)
	c.begin = time.Now()

	c.log.Info("starting exploration",
		"model", c.m.Name,
		"stateBits", c.m.WidthBits,
		"threads", c.cfg.Threads)

	if err := c.seed(); err != nil {
		return nil, err
	}

	if !c.aborted.Load() {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < c.cfg.Threads; i++ {
			g.Go(func() error {
				return c.worker(gctx)
			})
		}
		if err := g.Wait(); err != nil {
			c.q.Close()
			return nil, err
		}
	}

	return c.finish()
}

// seed enumerates every start-state candidate, dedup-inserts and
// invariant-checks each, and queues the survivors. A violation during seeding
// fails the run before any rule is applied.
func (c *Checker) seed() error {
	for i := range c.m.Starts {
		sr := &c.m.Starts[i]
		err := sr.StartStates(c.m.WidthBits, func(s *state.State) error {
			if c.aborted.Load() {
				return errStopSeeding
			}
			return c.admit(s)
		})
		if errors.Is(err, errStopSeeding) {
			return nil
		}
		if err != nil {
			// Initializer fault: no state to blame, report the rule.
			c.recordFailure(&failure{culprit: sr.Name, err: err})
			return nil
		}
	}
	return nil
}

var errStopSeeding = errors.New("checker: seeding aborted")

// worker drains the queue, expanding one state at a time, until the queue
// reports exhaustion or an abort closes it. Cancellation is cooperative: the
// abort flag is polled after each candidate and after each rule, never
// mid-candidate.
func (c *Checker) worker(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.q.Close()
			return err
		}
		s, ok := c.q.Pop()
		if !ok {
			return nil
		}
		if err := c.expand(ctx, s); err != nil {
			return err
		}
		if c.aborted.Load() {
			return nil
		}
	}
}

// expand applies every rule, in declaration order, to one state. Candidates
// are consumed incrementally so rules with large quantifier products never
// hold more than one unprocessed successor in memory.
func (c *Checker) expand(ctx context.Context, s *state.State) error {
	for i := range c.m.Rules {
		it := c.m.Rules[i].Candidates(s)
		for {
			cand, ok, err := it.Next()
			if err != nil {
				// Rule application fault: reported like a
				// violation, with the predecessor as the
				// failing state.
				c.recordFailure(&failure{state: s, culprit: c.m.Rules[i].Name, err: err})
				return nil
			}
			if !ok {
				break
			}
			c.met.Fired()
			if err := c.admit(cand); err != nil {
				return err
			}
			if c.aborted.Load() {
				return nil
			}
		}
		if c.aborted.Load() || ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// admit dedup-inserts one sealed candidate, invariant-checks it if it is new,
// and queues it for expansion. Duplicates are discarded without re-checking:
// their content already passed every invariant when first seen.
func (c *Checker) admit(cand *state.State) error {
	_, isNew, err := c.seen.InsertOrGet(cand)
	if err != nil {
		// The seen set cannot grow further. Fatal, not a finding.
		c.recordFailure(&failure{err: err, fatal: true})
		return err
	}
	if !isNew {
		c.met.Duplicated()
		return nil
	}
	c.met.Discovered()

	// A private counter rather than the set's approximate size: every
	// worker observes a distinct value, so each cadence multiple produces
	// exactly one progress line.
	n := c.discovered.Add(1)
	if n%c.cfg.ProgressInterval == 0 {
		depth := c.q.Len()
		c.met.SetQueueDepth(depth)
		c.log.Info("progress",
			"states", n,
			"elapsed", time.Since(c.begin).Round(time.Second),
			"queue", depth)
	}

	for i := range c.m.Invariants {
		inv := &c.m.Invariants[i]
		holds, err := inv.Pred(cand)
		if err != nil {
			c.recordFailure(&failure{state: cand, culprit: inv.Name,
				err: fmt.Errorf("invariant %q: %w", inv.Name, err)})
			return nil
		}
		if !holds {
			c.recordFailure(&failure{state: cand, culprit: inv.Name,
				err: fmt.Errorf("invariant %q failed", inv.Name)})
			return nil
		}
	}

	c.met.SetQueueDepth(c.q.Push(cand))
	return nil
}

// recordFailure claims the first-failure slot, sets the abort flag and wakes
// every parked worker. Concurrent later failures fall through without effect.
func (c *Checker) recordFailure(f *failure) {
	c.failOnce.Do(func() {
		c.fail = f
		c.aborted.Store(true)
		c.q.Close()
	})
}

// finish converts the terminal run state into a Result or a fatal error.
func (c *Checker) finish() (*Result, error) {
	elapsed := time.Since(c.begin)

	if c.fail != nil && c.fail.fatal {
		return nil, c.fail.err
	}
	if c.fail == nil && c.q.Len() > 0 {
		return nil, fmt.Errorf("%w: run ended with %d states still queued", ErrInternal, c.q.Len())
	}

	r := &Result{
		Model:            c.m,
		StatesDiscovered: c.seen.Size(),
		Elapsed:          elapsed,
	}
	if c.fail == nil {
		r.Verdict = Completed
		c.log.Info("exploration complete",
			"states", r.StatesDiscovered,
			"elapsed", elapsed.Round(time.Millisecond))
		return r, nil
	}

	r.Verdict = Failed
	r.Culprit = c.fail.culprit
	r.Err = c.fail.err
	r.FailingState = c.fail.state
	c.log.Warn("violation found",
		"culprit", r.Culprit,
		"states", r.StatesDiscovered,
		"elapsed", elapsed.Round(time.Millisecond))
	return r, nil
}
