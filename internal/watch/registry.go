// Package watch tracks which meetings are waiting for a WhatsApp reply and
// resolves an inbound sender to one of them.
package watch

import (
	"sort"
	"sync"
)

// Watch ties a normalized phone to a meeting awaiting a reply.
type Watch struct {
	Phone     string `json:"phone"`
	MeetingID int64  `json:"meetingId"`
}

type entry struct {
	phone string
	seq   uint64
}

// Registry is safe for concurrent use. There is at most one watch per meeting.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]entry
	nextSeq uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]entry)}
}

// Add watches phone for meetingID, replacing any previous watch for that
// meeting. The replaced watch moves to the end of registration order.
func (r *Registry) Add(phone string, meetingID int64) {
	if phone == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.entries[meetingID] = entry{phone: phone, seq: r.nextSeq}
}

// Remove drops the watch for meetingID and reports whether one existed.
func (r *Registry) Remove(meetingID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[meetingID]; !ok {
		return false
	}
	delete(r.entries, meetingID)
	return true
}

// Clear drops every watch and returns how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	r.entries = make(map[int64]entry)
	return n
}

// Len returns the number of active watches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Get returns the watch for meetingID.
func (r *Registry) Get(meetingID int64) (Watch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[meetingID]
	if !ok {
		return Watch{}, false
	}
	return Watch{Phone: e.phone, MeetingID: meetingID}, true
}

// Snapshot returns all watches in registration order.
func (r *Registry) Snapshot() []Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orderedLocked()
}

// FindMatch resolves an incoming normalized phone to a watch. Strategies are
// tried from strictest to most lenient; within a strategy the oldest
// registration wins. An empty phone never matches.
func (r *Registry) FindMatch(incoming string) (Watch, Strategy, bool) {
	if incoming == "" {
		return Watch{}, StrategyNone, false
	}

	r.mu.RLock()
	ordered := r.orderedLocked()
	r.mu.RUnlock()

	for _, m := range matchers {
		for _, w := range ordered {
			if m.match(w.Phone, incoming) {
				return w, m.name, true
			}
		}
	}
	return Watch{}, StrategyNone, false
}

func (r *Registry) orderedLocked() []Watch {
	type seqWatch struct {
		Watch
		seq uint64
	}
	tmp := make([]seqWatch, 0, len(r.entries))
	for id, e := range r.entries {
		tmp = append(tmp, seqWatch{Watch: Watch{Phone: e.phone, MeetingID: id}, seq: e.seq})
	}
	sort.Slice(tmp, func(i, j int) bool { return tmp[i].seq < tmp[j].seq })

	out := make([]Watch, len(tmp))
	for i := range tmp {
		out[i] = tmp[i].Watch
	}
	return out
}
