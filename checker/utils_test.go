package checker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"statecheck/config"
	"statecheck/model"
	"statecheck/state"
)

// Helper models for the scenario tests.

const (
	boolOffset = 0
	boolWidth  = 2
)

func readBool(s *state.State) (uint64, error) {
	return s.ReadBits(boolOffset, boolWidth)
}

// boolModel is one boolean variable: a start state setting it true and a rule
// flipping it. Exactly two states are reachable.
func boolModel() *model.Model {
	return &model.Model{
		Name:      "bool",
		WidthBits: boolWidth,
		Starts: []model.StartRule{
			{
				Name: "start true",
				Init: func(s *state.State, _ model.Bindings) error {
					return s.WriteBits(boolOffset, boolWidth, 1)
				},
			},
		},
		Rules: []model.Rule{
			{
				Name: "flip",
				Guard: func(*state.State, model.Bindings) (bool, error) {
					return true, nil
				},
				Body: func(s *state.State, _ model.Bindings) error {
					v, err := readBool(s)
					if err != nil {
						return err
					}
					return s.WriteBits(boolOffset, boolWidth, 1-v)
				},
			},
		},
	}
}

// diamondModel has nBits independent boolean fields, all starting false, and
// one quantified rule that sets any unset field. The reachable space is every
// subset: 2^nBits states, discovered in an order that depends heavily on
// worker interleaving.
func diamondModel(nBits int64) *model.Model {
	fieldOffset := func(i int64) int { return int(i) * 2 }
	return &model.Model{
		Name:      "diamond",
		WidthBits: int(nBits) * 2,
		Starts: []model.StartRule{
			{
				Name: "all unset",
				Init: func(s *state.State, _ model.Bindings) error {
					for i := int64(0); i < nBits; i++ {
						if err := s.WriteBits(fieldOffset(i), 2, 0); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
		Rules: []model.Rule{
			{
				Name:        "set bit",
				Quantifiers: []model.Quantifier{{Name: "i", Domain: model.Range(0, nBits-1)}},
				Guard: func(s *state.State, b model.Bindings) (bool, error) {
					v, err := s.ReadBits(fieldOffset(b[0]), 2)
					if err != nil {
						return false, err
					}
					return v == 0, nil
				},
				Body: func(s *state.State, b model.Bindings) error {
					return s.WriteBits(fieldOffset(b[0]), 2, 1)
				},
			},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runModel(t *testing.T, m *model.Model, threads int) *Result {
	t.Helper()
	cfg := config.Default()
	cfg.Threads = threads
	c, err := New(m, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	r, err := c.Run(context.Background())
	require.NoError(t, err)
	return r
}
