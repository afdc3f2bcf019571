package model

import (
	"strings"
	"testing"

	"statecheck/state"
)

func noopInit(*state.State, Bindings) error { return nil }

func TestDomainEnumeration(t *testing.T) {
	cases := []struct {
		name   string
		d      Domain
		values []int64
	}{
		{"range", Range(3, 6), []int64{3, 4, 5, 6}},
		{"empty range", Range(6, 3), nil},
		{"enum", Enum{Members: []string{"red", "green", "blue"}}, []int64{0, 1, 2}},
		{"scalarset", Scalarset{Size: 3}, []int64{0, 1, 2}},
		{"empty scalarset", Scalarset{Size: 0}, nil},
	}
	for _, c := range cases {
		if got := c.d.Len(); got != len(c.values) {
			t.Errorf("%s: Len() = %d, want %d", c.name, got, len(c.values))
			continue
		}
		for i, want := range c.values {
			if got := c.d.Value(i); got != want {
				t.Errorf("%s: Value(%d) = %d, want %d", c.name, i, got, want)
			}
		}
	}
}

func TestEnumRender(t *testing.T) {
	e := Enum{Members: []string{"red", "green"}}
	if got := e.Render(1); got != "green" {
		t.Errorf("Render(1) = %q, want %q", got, "green")
	}
	if got := e.Render(7); !strings.Contains(got, "7") {
		t.Errorf("out-of-range Render(7) = %q", got)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	cases := []struct {
		name string
		m    *Model
	}{
		{"zero width", &Model{Name: "m", Starts: []StartRule{{Name: "s", Init: noopInit}}}},
		{"no starts", &Model{Name: "m", WidthBits: 8}},
		{"unnamed start", &Model{Name: "m", WidthBits: 8, Starts: []StartRule{{Init: noopInit}}}},
		{"rule without body", &Model{Name: "m", WidthBits: 8,
			Starts: []StartRule{{Name: "s", Init: noopInit}},
			Rules:  []Rule{{Name: "r", Guard: alwaysTrue}}}},
		{"unnamed invariant", &Model{Name: "m", WidthBits: 8,
			Starts:     []StartRule{{Name: "s", Init: noopInit}},
			Invariants: []Invariant{{}}}},
	}
	for _, c := range cases {
		if err := c.m.Validate(); err == nil {
			t.Errorf("%s: Validate accepted an invalid model", c.name)
		}
	}

	ok := &Model{Name: "m", WidthBits: 8, Starts: []StartRule{{Name: "s", Init: noopInit}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate rejected a valid model: %v", err)
	}
}
