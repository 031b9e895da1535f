package notify

import "sync"

// Registry maps a group key to the sessions currently subscribed to it.
// Membership is process-local and lost on reconnect.
type Registry interface {
	Join(key string, s *Session)
	// Leave removes s from whichever group holds it and reports that group.
	Leave(s *Session) (string, bool)
	Members(key string) []*Session
}

// MemoryRegistry is the in-process Registry.
type MemoryRegistry struct {
	mu     sync.RWMutex
	groups map[string]map[*Session]struct{}
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{groups: make(map[string]map[*Session]struct{})}
}

// Join adds s to the group named key.
func (r *MemoryRegistry) Join(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[key]
	if !ok {
		members = make(map[*Session]struct{})
		r.groups[key] = members
	}
	members[s] = struct{}{}
}

// Leave scans the groups for s and removes it.
func (r *MemoryRegistry) Leave(s *Session) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, members := range r.groups {
		if _, ok := members[s]; !ok {
			continue
		}
		delete(members, s)
		if len(members) == 0 {
			delete(r.groups, key)
		}
		return key, true
	}
	return "", false
}

// Members returns a snapshot of the sessions in the group named key.
func (r *MemoryRegistry) Members(key string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.groups[key]
	out := make([]*Session, 0, len(members))
	for s := range members {
		out = append(out, s)
	}
	return out
}
