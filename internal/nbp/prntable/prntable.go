// Package prntable tracks recently seen packet IDs so a node can suppress
// duplicate deliveries of a frame it has already handled.
package prntable

// DefaultCapacity is the ring size used when a node doesn't need a
// different duplicate-suppression window.
const DefaultCapacity = 1000

// Table is a fixed-capacity ring of the most recently seen PRNs. Once
// full, adding a new PRN silently overwrites the oldest entry; there is
// no explicit removal.
type Table struct {
	prns    []uint32
	lastIdx int
}

// New creates a Table that remembers the most recent capacity PRNs.
// capacity must be at least 1.
func New(capacity int) *Table {
	if capacity < 1 {
		capacity = 1
	}

	return &Table{prns: make([]uint32, capacity)}
}

// Add records prn as seen, evicting the oldest entry if the table is
// full.
func (t *Table) Add(prn uint32) {
	t.prns[t.lastIdx] = prn
	t.lastIdx++

	if t.lastIdx >= len(t.prns) {
		t.lastIdx = 0
	}
}

// Contains reports whether prn is currently within the remembered
// window.
func (t *Table) Contains(prn uint32) bool {
	for _, seen := range t.prns {
		if seen == prn {
			return true
		}
	}

	return false
}
