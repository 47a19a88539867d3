package survey

import (
	"fmt"
	"math"
	"sort"

	"driftwatch/domain/core"
)

// Missing returns the uniform in-memory representation of a missing value.
// Source-specific sentinel codes must be normalized to this before a table
// reaches the pipeline.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a value is missing.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Frame is the in-memory tabular dataset the pipeline operates on: one row
// per (person, wave), a fixed row set, and an append-only ordered column set.
// Components append derived columns; they never rewrite existing ones.
type Frame struct {
	persons []core.PersonID
	waves   []int
	cols    []string
	data    map[string][]float64

	rowsByPerson map[core.PersonID][]int
	personOrder  []core.PersonID
}

// NewFrame creates a frame from parallel person and wave slices. Duplicate
// (person, wave) pairs violate the ordering invariant and are rejected.
func NewFrame(persons []core.PersonID, waves []int) (*Frame, error) {
	if len(persons) != len(waves) {
		return nil, fmt.Errorf("person/wave length mismatch: %d vs %d", len(persons), len(waves))
	}

	f := &Frame{
		persons:      persons,
		waves:        waves,
		data:         make(map[string][]float64),
		rowsByPerson: make(map[core.PersonID][]int),
	}

	seen := make(map[core.PersonID]map[int]bool)
	for i, p := range persons {
		if seen[p] == nil {
			seen[p] = make(map[int]bool)
			f.personOrder = append(f.personOrder, p)
		}
		if seen[p][waves[i]] {
			return nil, fmt.Errorf("duplicate wave %d for person %s", waves[i], p)
		}
		seen[p][waves[i]] = true
		f.rowsByPerson[p] = append(f.rowsByPerson[p], i)
	}

	// Keep each person's rows in wave order so every downstream "past" or
	// "trailing window" computation sees a sorted history.
	for p, rows := range f.rowsByPerson {
		r := rows
		sort.SliceStable(r, func(a, b int) bool { return waves[r[a]] < waves[r[b]] })
		f.rowsByPerson[p] = r
	}

	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.persons)
}

// PersonAt returns the person id of row i.
func (f *Frame) PersonAt(i int) core.PersonID {
	return f.persons[i]
}

// WaveAt returns the wave index of row i.
func (f *Frame) WaveAt(i int) int {
	return f.waves[i]
}

// Persons returns person ids in first-appearance order. The order is part of
// the determinism contract: every per-person loop iterates it.
func (f *Frame) Persons() []core.PersonID {
	out := make([]core.PersonID, len(f.personOrder))
	copy(out, f.personOrder)
	return out
}

// RowsFor returns the row indices of a person sorted by wave ascending.
func (f *Frame) RowsFor(p core.PersonID) []int {
	return f.rowsByPerson[p]
}

// Columns returns the column names in append order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether a column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the backing slice for a column, or nil when absent.
// Callers must treat the slice as read-only.
func (f *Frame) Column(name string) []float64 {
	return f.data[name]
}

// Value returns the value at (row, column); ok is false when the column is
// absent. A present column may still hold a missing value.
func (f *Frame) Value(i int, name string) (float64, bool) {
	col, ok := f.data[name]
	if !ok {
		return Missing(), false
	}
	return col[i], true
}

// AddColumn appends a derived column. Overwriting an existing column would
// break earlier components' invariants, so duplicates are rejected.
func (f *Frame) AddColumn(name string, vals []float64) error {
	if len(vals) != f.Len() {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(vals), f.Len())
	}
	if _, exists := f.data[name]; exists {
		return fmt.Errorf("column %s already exists", name)
	}
	f.cols = append(f.cols, name)
	f.data[name] = vals
	return nil
}

// NewColumn allocates a column-sized slice pre-filled with missing values.
func (f *Frame) NewColumn() []float64 {
	vals := make([]float64, f.Len())
	for i := range vals {
		vals[i] = Missing()
	}
	return vals
}

// Record extracts one row as a self-contained record for ad hoc scoring and
// explanation. Column order is preserved from the frame.
func (f *Frame) Record(i int) Record {
	values := make(map[string]float64, len(f.cols))
	for _, c := range f.cols {
		values[c] = f.data[c][i]
	}
	return Record{
		Person:  f.persons[i],
		Wave:    f.waves[i],
		Columns: f.Columns(),
		Values:  values,
	}
}

// Fingerprint hashes the full table for reproducibility audits.
func (f *Frame) Fingerprint() core.SnapshotHash {
	return core.HashColumns(f.cols, f.data)
}

// Record is one (person, wave) row with ordered columns.
type Record struct {
	Person  core.PersonID
	Wave    int
	Columns []string
	Values  map[string]float64
}

// Value returns a record value; missing columns read as missing.
func (r Record) Value(name string) float64 {
	v, ok := r.Values[name]
	if !ok {
		return Missing()
	}
	return v
}
