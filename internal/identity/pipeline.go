package identity

import (
	"sort"
	"sync"
)

// Hook priorities used by the daemon. The beacon hook sits strictly after
// consent collection and strictly before request dispatch, so consent data
// is always present when the firing gate is evaluated.
const (
	PriorityConsent  = 10
	PriorityTracker  = 40
	PriorityDispatch = 100
)

// Invocation carries one page-load's context through the hook chain.
type Invocation struct {
	Page    PageContext
	Consent *ConsentData
	State   *FireState
	Acc     *Accessor

	// Track is filled in by the beacon hook.
	Track *Result
}

type Hook func(*Invocation)

type hookEntry struct {
	priority int
	seq      int
	fn       Hook
}

// Registry is the before-dispatch hook registration point the host pipeline
// exposes. Hooks run in ascending priority; registration order breaks ties.
type Registry struct {
	mu      sync.Mutex
	entries []hookEntry
	seq     int
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(priority int, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, hookEntry{priority: priority, seq: r.seq, fn: fn})
	r.seq++
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].priority != r.entries[j].priority {
			return r.entries[i].priority < r.entries[j].priority
		}
		return r.entries[i].seq < r.entries[j].seq
	})
}

func (r *Registry) Run(inv *Invocation) {
	r.mu.Lock()
	entries := make([]hookEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	for _, e := range entries {
		e.fn(inv)
	}
}
