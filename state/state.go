package state

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// A State is a fixed-width bit buffer recording one point in the state space
// of a model, together with a back-reference to the state it was discovered
// from. Two states with bit-identical buffers are the same state regardless of
// the path that produced them: equality and hashing read the buffer only.
//
// A State is mutable while it is being constructed (the initializer or rule
// body writes fields into it) and immutable from the moment it is sealed.
// Sealed states are shared freely between worker goroutines.
type State struct {
	buf  []byte
	hash uint64

	prev *State
	rule string

	sealed bool
}

var (
	// Returned by ReadBits when the addressed field has never been assigned.
	ErrUndefined = errors.New("state: read of undefined value")

	// Returned when a field accessor addresses bits outside the buffer.
	ErrOutOfRange = errors.New("state: bit offset out of range")
)

// New returns a blank, unsealed state of the given width in bits. All bits
// start zero, which encodes the undefined value for every field.
func New(widthBits int) *State {
	return &State{
		buf: make([]byte, (widthBits+7)/8),
	}
}

// Clone returns an unsealed copy of s with its predecessor set to s. The rule
// label records which rule produced the copy and is carried into the
// counterexample rendering.
func (s *State) Clone(rule string) *State {
	buf := make([]byte, len(s.buf))
	copy(buf, s.buf)
	return &State{
		buf:  buf,
		prev: s,
		rule: rule,
	}
}

// Seal freezes the state and caches its content hash. Accessor writes after
// Seal indicate a defect in the core, not in the model, and panic.
func (s *State) Seal() *State {
	s.hash = xxhash.Sum64(s.buf)
	s.sealed = true
	return s
}

// Hash returns the content hash of the buffer. Valid only after Seal.
func (s *State) Hash() uint64 {
	if !s.sealed {
		panic("state: Hash called before Seal")
	}
	return s.hash
}

// Equal reports whether s and o have bit-identical buffers. The predecessor
// and rule label are ignored.
func (s *State) Equal(o *State) bool {
	return bytes.Equal(s.buf, o.buf)
}

// Predecessor returns the state s was discovered from, or nil for a start
// state. Once sealed the reference never changes, so the discovery graph is a
// rooted acyclic forest.
func (s *State) Predecessor() *State {
	return s.prev
}

// Rule returns the name of the start rule or rule whose body produced s.
func (s *State) Rule() string {
	return s.rule
}

// SetRule records the producing rule on an unsealed state. Start-state
// enumeration uses it since blank states are created before the rule label is
// bound.
func (s *State) SetRule(rule string) {
	if s.sealed {
		panic("state: SetRule on sealed state")
	}
	s.rule = rule
}

// WidthBits returns the buffer width in bits.
func (s *State) WidthBits() int {
	return len(s.buf) * 8
}

// ReadBits reads a width-bit little-endian field at the given bit offset.
// Generated field accessors shift the raw value by one so that zero encodes
// "undefined"; reading a zero raw value returns ErrUndefined.
func (s *State) ReadBits(offset, width int) (uint64, error) {
	raw, err := s.peekBits(offset, width)
	if err != nil {
		return 0, err
	}
	if raw == 0 {
		return 0, ErrUndefined
	}
	return raw - 1, nil
}

// WriteBits writes a width-bit field at the given bit offset, shifting the
// value by one so that a zero buffer reads back as undefined.
func (s *State) WriteBits(offset, width int, value uint64) error {
	if s.sealed {
		panic("state: WriteBits on sealed state")
	}
	return s.pokeBits(offset, width, value+1)
}

// Defined reports whether the field at the given offset has been assigned.
func (s *State) Defined(offset, width int) bool {
	raw, err := s.peekBits(offset, width)
	return err == nil && raw != 0
}

func (s *State) peekBits(offset, width int) (uint64, error) {
	if width <= 0 || width > 63 || offset < 0 || offset+width > len(s.buf)*8 {
		return 0, fmt.Errorf("%w: offset %d width %d of %d bits", ErrOutOfRange, offset, width, len(s.buf)*8)
	}
	var v uint64
	for i := 0; i < width; i++ {
		bit := offset + i
		if s.buf[bit/8]&(1<<(bit%8)) != 0 {
			v |= 1 << i
		}
	}
	return v, nil
}

func (s *State) pokeBits(offset, width int, v uint64) error {
	if width <= 0 || width > 63 || offset < 0 || offset+width > len(s.buf)*8 {
		return fmt.Errorf("%w: offset %d width %d of %d bits", ErrOutOfRange, offset, width, len(s.buf)*8)
	}
	if v >= 1<<width {
		return fmt.Errorf("%w: value %d does not fit in %d bits", ErrOutOfRange, v, width)
	}
	for i := 0; i < width; i++ {
		bit := offset + i
		if v&(1<<i) != 0 {
			s.buf[bit/8] |= 1 << (bit % 8)
		} else {
			s.buf[bit/8] &^= 1 << (bit % 8)
		}
	}
	return nil
}

// Depth returns the number of predecessor hops back to a start state.
func (s *State) Depth() int {
	d := 0
	for p := s.prev; p != nil; p = p.prev {
		d++
	}
	return d
}

// String renders the raw buffer as hex. Models normally install their own
// renderer; this is the fallback.
func (s *State) String() string {
	var b strings.Builder
	b.WriteString("0x")
	for i := len(s.buf) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%02x", s.buf[i])
	}
	return b.String()
}
