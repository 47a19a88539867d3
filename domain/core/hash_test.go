package core

import (
	"math"
	"testing"
)

func TestHashColumns_OrderAndContentSensitive(t *testing.T) {
	values := map[string][]float64{"a": {1, 2}, "b": {3, 4}}

	h1 := HashColumns([]string{"a", "b"}, values)
	h2 := HashColumns([]string{"a", "b"}, values)
	if h1 != h2 {
		t.Error("identical input must hash identically")
	}

	if h1 == HashColumns([]string{"b", "a"}, values) {
		t.Error("column order is part of the snapshot identity")
	}

	changed := map[string][]float64{"a": {1, 2}, "b": {3, 5}}
	if h1 == HashColumns([]string{"a", "b"}, changed) {
		t.Error("changed values must change the hash")
	}
}

func TestHashColumns_NaNPayloadsFold(t *testing.T) {
	// Different NaN bit patterns must hash as the same "missing".
	nanA := math.NaN()
	nanB := math.Log(-1)

	h1 := HashColumns([]string{"x"}, map[string][]float64{"x": {nanA}})
	h2 := HashColumns([]string{"x"}, map[string][]float64{"x": {nanB}})
	if h1 != h2 {
		t.Error("NaN payloads must fold to one bit pattern")
	}
}

func TestNewHash(t *testing.T) {
	h := NewHash([]byte("abc"))
	if h.IsEmpty() || len(h.String()) != 64 {
		t.Errorf("expected a 64-char hex sha256, got %q", h)
	}
	if !h.Equals(NewHash([]byte("abc"))) {
		t.Error("equal input must produce equal hashes")
	}
}
