package chat

import (
	"sort"
	"sync"

	"github.com/avelarde/chatline/internal/wire"
)

// Registry is the authoritative record of announced connections. It maps a
// connection id to the profile announced on that channel and hands out
// snapshots in join order, so repeated reads between mutations are identical.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]wire.Profile
	joined   map[string]uint64
	seq      uint64
}

func NewRegistry() *Registry {
	return &Registry{
		profiles: map[string]wire.Profile{},
		joined:   map[string]uint64{},
	}
}

// Put registers a profile under its connection id. Announcing again on the
// same channel overwrites the profile but keeps the original join position.
func (r *Registry) Put(p wire.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.joined[p.ID]; !ok {
		r.seq++
		r.joined[p.ID] = r.seq
	}
	r.profiles[p.ID] = p
}

// Remove drops the entry for id. Removing an id that never announced is a
// no-op; the return value reports whether an entry existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return false
	}
	delete(r.profiles, id)
	delete(r.joined, id)
	return true
}

func (r *Registry) Get(id string) (wire.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// Snapshot returns all registered profiles ordered by join sequence.
func (r *Registry) Snapshot() []wire.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return r.joined[out[i].ID] < r.joined[out[j].ID] })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
