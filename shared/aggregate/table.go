package aggregate

import (
	"iter"
	"maps"
	"slices"
)

// Table maps each distinct key to its Aggregate. A Table is not safe for
// concurrent use; it is owned by one goroutine at a time.
type Table struct {
	entries map[string]*Aggregate
}

// NewTable creates an empty table with room for sizeHint keys
func NewTable(sizeHint int) *Table {
	return &Table{entries: make(map[string]*Aggregate, sizeHint)}
}

// Update records value for key, creating the aggregate on first sight
func (t *Table) Update(key string, value float64) {
	if agg, ok := t.entries[key]; ok {
		agg.Record(value)
		return
	}
	t.entries[key] = New(value)
}

// MergeInto folds every aggregate of other into t. other is emptied and must
// not be used afterwards. Merging a table into itself is a no-op.
func (t *Table) MergeInto(other *Table) {
	if other == nil || other == t {
		return
	}
	for key, agg := range other.entries {
		if existing, ok := t.entries[key]; ok {
			existing.Merge(agg)
		} else {
			t.entries[key] = agg
		}
	}
	other.entries = nil
}

// Get returns the aggregate for key
func (t *Table) Get(key string) (*Aggregate, bool) {
	agg, ok := t.entries[key]
	return agg, ok
}

// Len returns the number of distinct keys
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns the keys in ascending order
func (t *Table) Keys() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// All iterates over the entries in ascending key order
func (t *Table) All() iter.Seq2[string, *Aggregate] {
	return func(yield func(string, *Aggregate) bool) {
		for _, key := range t.Keys() {
			if !yield(key, t.entries[key]) {
				return
			}
		}
	}
}
