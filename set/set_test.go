package set

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"statecheck/state"
)

// makeState builds a sealed 32-bit state holding the given value.
func makeState(t testing.TB, v uint64) *state.State {
	t.Helper()
	s := state.New(32)
	if err := s.WriteBits(0, 24, v); err != nil {
		t.Fatal(err)
	}
	return s.Seal()
}

func TestInsertOrGetFirstWins(t *testing.T) {
	s := New(1024, 75, 0)

	a := makeState(t, 42)
	got, isNew, err := s.InsertOrGet(a)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew || got != a {
		t.Fatalf("first insert: isNew=%t got=%p, want true/%p", isNew, got, a)
	}

	// A different object with equal content must resolve to the canonical
	// first one.
	b := makeState(t, 42)
	got, isNew, err = s.InsertOrGet(b)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Error("second insert of equal content reported new")
	}
	if got != a {
		t.Error("second insert did not return the canonical state")
	}
	if s.Size() != 1 {
		t.Errorf("Size() = %d, want 1", s.Size())
	}
}

func TestGrowthKeepsEntries(t *testing.T) {
	// Tiny initial capacity forces many per-shard resizes.
	s := New(8, 50, 0)
	const n = 50000
	for i := uint64(0); i < n; i++ {
		if _, isNew, err := s.InsertOrGet(makeState(t, i)); err != nil {
			t.Fatal(err)
		} else if !isNew {
			t.Fatalf("state %d reported as duplicate on first insert", i)
		}
	}
	if s.Size() != n {
		t.Fatalf("Size() = %d, want %d", s.Size(), n)
	}
	// Everything inserted before the resizes must still be found.
	for i := uint64(0); i < n; i++ {
		if _, isNew, err := s.InsertOrGet(makeState(t, i)); err != nil {
			t.Fatal(err)
		} else if isNew {
			t.Fatalf("state %d lost across resize", i)
		}
	}
}

func TestConcurrentInsertExactlyOnce(t *testing.T) {
	s := New(64, 75, 0)
	const (
		distinct = 5000
		writers  = 8
	)

	// Every writer races to insert the same `distinct` contents. Exactly
	// one insert per content may win.
	var wins atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < distinct; i++ {
				_, isNew, err := s.InsertOrGet(makeState(t, i))
				if err != nil {
					t.Error(err)
					return
				}
				if isNew {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if wins.Load() != distinct {
		t.Errorf("%d inserts won, want exactly %d", wins.Load(), distinct)
	}
	if s.Size() != distinct {
		t.Errorf("Size() = %d, want %d", s.Size(), distinct)
	}
}

func TestBucketDistribution(t *testing.T) {
	// Shard selection uses the low hash bits, so bucket indexing must not
	// reuse them: with bucket counts a multiple of shardCount, low-bit
	// reuse would confine each shard's entries to 1/shardCount of its
	// buckets and grow chains far past the configured load factor.
	s := New(1<<16, 75, 0)
	const n = 1 << 16
	for i := uint64(0); i < n; i++ {
		if _, _, err := s.InsertOrGet(makeState(t, i)); err != nil {
			t.Fatal(err)
		}
	}

	buckets, nonempty, maxChain := 0, 0, 0
	for i := range s.shards {
		sh := &s.shards[i]
		buckets += len(sh.buckets)
		for _, bucket := range sh.buckets {
			if len(bucket) > 0 {
				nonempty++
			}
			if len(bucket) > maxChain {
				maxChain = len(bucket)
			}
		}
	}

	// At a load factor at or below the expand threshold, a healthy hash
	// spread leaves far more than 1/shardCount of the buckets occupied
	// and keeps chains short.
	if nonempty*4 < buckets {
		t.Errorf("only %d of %d buckets occupied after %d inserts", nonempty, buckets, n)
	}
	if maxChain > 12 {
		t.Errorf("longest chain is %d entries after %d inserts", maxChain, n)
	}
}

func TestMaxCapacity(t *testing.T) {
	s := New(64, 75, 10)
	for i := uint64(0); i < 10; i++ {
		if _, _, err := s.InsertOrGet(makeState(t, i)); err != nil {
			t.Fatal(err)
		}
	}
	// Re-inserting seen content is still fine at the ceiling.
	if _, isNew, err := s.InsertOrGet(makeState(t, 3)); err != nil || isNew {
		t.Fatalf("duplicate at capacity: isNew=%t err=%v", isNew, err)
	}
	if _, _, err := s.InsertOrGet(makeState(t, 999)); !errors.Is(err, ErrFull) {
		t.Errorf("insert past capacity returned %v, want ErrFull", err)
	}
}
