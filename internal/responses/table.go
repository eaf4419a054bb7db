// Package responses holds the canned input/response table that the matcher
// searches, and loads it from a tabular source.
package responses

import "github.com/garyellow/chatai/internal/stringutil"

// Entry is one trigger phrase and the reply it maps to.
// Trigger is lowercased and trimmed; Response is kept byte for byte.
type Entry struct {
	Trigger  string
	Response string
}

// Table is an insertion-ordered trigger to response mapping.
// It is immutable once built and safe for concurrent readers.
type Table struct {
	entries []Entry
	index   map[string]int
}

// Len returns the number of distinct triggers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the response for an exact (normalized) trigger.
func (t *Table) Lookup(trigger string) (string, bool) {
	if t == nil {
		return "", false
	}
	i, ok := t.index[trigger]
	if !ok {
		return "", false
	}
	return t.entries[i].Response, true
}

// Entries returns a copy of the entries in insertion order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (t *Table) Range(fn func(trigger, response string) bool) {
	if t == nil {
		return
	}
	for _, e := range t.entries {
		if !fn(e.Trigger, e.Response) {
			return
		}
	}
}

// Builder accumulates entries for a Table.
type Builder struct {
	entries []Entry
	index   map[string]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Add normalizes trigger and stores the pair. A trigger seen before keeps its
// original position and takes the new response. Add reports whether a new
// entry was created; pairs with an empty trigger (after normalization) or an
// empty response are ignored and report false.
func (b *Builder) Add(trigger, response string) bool {
	trigger = stringutil.Normalize(trigger)
	if trigger == "" || response == "" {
		return false
	}
	if i, ok := b.index[trigger]; ok {
		b.entries[i].Response = response
		return false
	}
	b.index[trigger] = len(b.entries)
	b.entries = append(b.entries, Entry{Trigger: trigger, Response: response})
	return true
}

// Len returns the number of distinct triggers added so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build returns a Table holding a snapshot of the builder's entries.
func (b *Builder) Build() *Table {
	t := &Table{
		entries: make([]Entry, len(b.entries)),
		index:   make(map[string]int, len(b.index)),
	}
	copy(t.entries, b.entries)
	for k, v := range b.index {
		t.index[k] = v
	}
	return t
}
