package set

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"statecheck/state"
)

// Returned when a shard would have to grow beyond the configured capacity
// ceiling. The run cannot continue once the set is full.
var ErrFull = errors.New("set: state set reached maximum capacity")

const shardCount = 64

// Set is the record of every distinct state discovered so far and the single
// source of truth for "has this state been seen". It is sharded by content
// hash; each shard carries its own lock so a resize blocks only inserts that
// hash into the resizing shard.
type Set struct {
	shards [shardCount]shard

	// Load-factor percentage above which a shard doubles its bucket count.
	expandThreshold int

	// Upper bound on total stored states, 0 for unbounded.
	maxCapacity uint64

	size atomic.Uint64
}

type shard struct {
	mu      sync.Mutex
	buckets [][]*state.State
	n       int
}

// New returns an empty set. initialCapacity is the total number of states the
// set is sized for up front and is split evenly across shards.
// expandThreshold is the per-shard load-factor percentage that triggers
// growth. maxCapacity bounds the total number of stored states; zero means no
// bound.
func New(initialCapacity, expandThreshold int, maxCapacity uint64) *Set {
	perShard := initialCapacity / shardCount
	if perShard < 8 {
		perShard = 8
	}
	s := &Set{
		expandThreshold: expandThreshold,
		maxCapacity:     maxCapacity,
	}
	for i := range s.shards {
		s.shards[i].buckets = make([][]*state.State, perShard)
	}
	return s
}

// InsertOrGet records st if its content has never been seen and returns
// (st, true). If a state with equal content is already present it returns
// (the canonical state, false) and the caller discards st. The check and the
// insert are atomic with respect to concurrent calls on equal content:
// exactly one caller ever observes true for a given buffer.
func (s *Set) InsertOrGet(st *state.State) (*state.State, bool, error) {
	h := st.Hash()
	sh := &s.shards[h%shardCount]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	// Shard selection consumed the low bits of the hash, so the bucket
	// index must come from higher bits: every hash in this shard is
	// congruent mod shardCount, and bucket counts are multiples of
	// shardCount.
	idx := (h / shardCount) % uint64(len(sh.buckets))
	for _, existing := range sh.buckets[idx] {
		if existing.Hash() == h && existing.Equal(st) {
			return existing, false, nil
		}
	}

	if s.maxCapacity > 0 && s.size.Load() >= s.maxCapacity {
		return nil, false, fmt.Errorf("%w (%d states)", ErrFull, s.size.Load())
	}

	sh.buckets[idx] = append(sh.buckets[idx], st)
	sh.n++
	s.size.Add(1)

	if sh.n*100 >= len(sh.buckets)*s.expandThreshold {
		sh.grow()
	}
	return st, true, nil
}

// grow doubles the shard's bucket count and rehashes its entries. Called with
// the shard lock held, so no insert into this shard can race the move; other
// shards stay available throughout.
func (sh *shard) grow() {
	next := make([][]*state.State, len(sh.buckets)*2)
	for _, bucket := range sh.buckets {
		for _, st := range bucket {
			idx := (st.Hash() / shardCount) % uint64(len(next))
			next[idx] = append(next[idx], st)
		}
	}
	sh.buckets = next
}

// Size returns the number of distinct states recorded. The counter is
// monotonically non-decreasing and may trail concurrent inserts; it is meant
// for progress reporting, not for coordination.
func (s *Set) Size() uint64 {
	return s.size.Load()
}
