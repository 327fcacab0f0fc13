// Copyright (c) 2024, yangforge contributors.
//
// SPDX-License-Identifier: MPL-2.0

package deviation

import (
	"testing"

	"github.com/yangforge/schema-compiler/schema"
)

// Pins spec §9's off-by-one ambiguity: deleting one default value out of a
// leaf-list's defaults must retain every other entry, including when the
// deleted value sits last or repeats earlier in the list.
func TestRemoveValuesOffByOne(t *testing.T) {
	cases := []struct {
		name   string
		have   []string
		remove []string
		want   []string
	}{
		{"delete last", []string{"a", "b", "c"}, []string{"c"}, []string{"a", "b"}},
		{"delete first", []string{"a", "b", "c"}, []string{"a"}, []string{"b", "c"}},
		{"delete middle", []string{"a", "b", "c"}, []string{"b"}, []string{"a", "c"}},
		{"delete one of a repeated value", []string{"a", "b", "a"}, []string{"a"}, []string{"b", "a"}},
		{"delete all", []string{"a", "b"}, []string{"a", "b"}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := removeValues(c.have, c.remove)
			if err != nil {
				t.Fatalf("removeValues(%v, %v) returned unexpected error: %v", c.have, c.remove, err)
			}
			if len(got) != len(c.want) {
				t.Fatalf("removeValues(%v, %v) = %v, want %v", c.have, c.remove, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("removeValues(%v, %v) = %v, want %v", c.have, c.remove, got, c.want)
				}
			}
		})
	}
}

// A deviate-delete value that is not actually present is a "delete value
// mismatch" error (spec §7's Deviation conflict taxonomy), not a silent
// no-op.
func TestRemoveValuesMismatchIsError(t *testing.T) {
	if _, err := removeValues([]string{"a", "b"}, []string{"c"}); err == nil {
		t.Fatalf("expected removeValues to error when the requested value is not present")
	}
	if _, err := removeValues([]string{"a"}, []string{"a", "a"}); err == nil {
		t.Fatalf("expected removeValues to error when more occurrences are requested than present")
	}
}

func TestRemoveMusts(t *testing.T) {
	have := []schema.Must{{Expr: "a"}, {Expr: "b"}, {Expr: "c"}}
	got, err := removeMusts(have, []schema.Must{{Expr: "b"}})
	if err != nil {
		t.Fatalf("removeMusts returned unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Expr != "a" || got[1].Expr != "c" {
		t.Fatalf("removeMusts = %#v", got)
	}
}

func TestRemoveMustsMismatchIsError(t *testing.T) {
	have := []schema.Must{{Expr: "a"}}
	if _, err := removeMusts(have, []schema.Must{{Expr: "nope"}}); err == nil {
		t.Fatalf("expected removeMusts to error when the requested must is not present")
	}
}

func TestRemoveUnique(t *testing.T) {
	have := [][]string{{"a"}, {"b", "c"}}
	got, err := removeUnique(have, [][]string{{"b", "c"}})
	if err != nil {
		t.Fatalf("removeUnique returned unexpected error: %v", err)
	}
	if len(got) != 1 || !joinEq(got[0], []string{"a"}) {
		t.Fatalf("removeUnique = %#v", got)
	}
}

func TestRemoveUniqueMismatchIsError(t *testing.T) {
	have := [][]string{{"a"}}
	if _, err := removeUnique(have, [][]string{{"nope"}}); err == nil {
		t.Fatalf("expected removeUnique to error when the requested unique is not present")
	}
}
