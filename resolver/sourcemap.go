// Package resolver implements the Buff→Ability Resolver: it collapses
// side-effect buff names to parent abilities so mitigation lookups and
// availability comparisons key on the same identity. The synchronous
// classification (direct match, hardcoded override) happens inline;
// anything left over is queued and resolved through a bounded background
// fan-out, grounded on the teacher's otherwise-unused golang.org/x/sync
// dependency via errgroup.Group (see DESIGN.md and SPEC_FULL.md's DOMAIN
// STACK section) — independent tasks that never mutate rows already
// emitted and write only to this package's BuffSourceMap, per spec.md §5.
package resolver

import (
	"sync"

	"github.com/nicoberrocal/combatlog/catalog"
)

// State is the lifecycle of one BuffSourceMap entry.
type State int

const (
	StateDirect State = iota
	StatePending
	StateUnresolved
	StateMapped
)

// Entry is one resolved (or in-flight) buff-source-map slot.
type Entry struct {
	State   State
	Ability string // normalized parent ability, valid for Direct/Mapped
}

// SourceMap is the per-encounter normalized_buff_name -> Entry table.
// Reads/writes are synchronized so the background drain (resolver.go) can
// write results back without racing the synchronous classification pass.
type SourceMap struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewSourceMap constructs an empty map, one per encounter.
func NewSourceMap() *SourceMap {
	return &SourceMap{entries: make(map[string]Entry)}
}

// Get returns the entry for a normalized buff name, if classified.
func (m *SourceMap) Get(buffNorm string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[buffNorm]
	return e, ok
}

// Set records (or overwrites) the entry for a normalized buff name.
func (m *SourceMap) Set(buffNorm string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[buffNorm] = e
}

// HasPending reports whether any entry is still awaiting background
// resolution; this is the condition the completion poller watches for.
func (m *SourceMap) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.State == StatePending {
			return true
		}
	}
	return false
}

// ensureNormalized is a tiny guard so callers can't accidentally index
// the map with an un-normalized name.
func ensureNormalized(name string) string {
	return catalog.Normalize(name)
}
