package sim

import "sort"

// ConnID identifies one client connection across the registry and broadcaster.
type ConnID string

// Filter maps object name → requested field names. A nil slice means all
// fields of that object.
type Filter map[string][]string

// Copy returns a deep copy of the filter.
func (f Filter) Copy() Filter {
	out := make(Filter, len(f))
	for name, fields := range f {
		if fields == nil {
			out[name] = nil
			continue
		}
		cp := make([]string, len(fields))
		copy(cp, fields)
		out[name] = cp
	}
	return out
}

// Registry records which objects and fields each connection wants notified
// about. Owned by the engine loop.
type Registry struct {
	subs map[ConnID]Filter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[ConnID]Filter)}
}

// Subscribe merges the filter into the connection's subscription, last write
// wins per object. Every referenced object must exist in the store's catalog;
// on an unknown name the subscription is left entirely unchanged and a
// not-found error is returned. This is deliberately stricter than Query.
func (r *Registry) Subscribe(conn ConnID, filter Filter, store *Store) error {
	for name := range filter {
		if !store.Has(name) {
			return Errorf(KindNotFound, "unknown printer object %q", name)
		}
	}
	sub, ok := r.subs[conn]
	if !ok {
		sub = make(Filter, len(filter))
		r.subs[conn] = sub
	}
	for name, fields := range filter.Copy() {
		sub[name] = fields
	}
	return nil
}

// UnsubscribeAll removes the connection's subscription. Idempotent.
func (r *Registry) UnsubscribeAll(conn ConnID) {
	delete(r.subs, conn)
}

// Snapshot returns a copy of the connection's effective filter, nil if the
// connection has no subscription.
func (r *Registry) Snapshot(conn ConnID) Filter {
	sub, ok := r.subs[conn]
	if !ok {
		return nil
	}
	return sub.Copy()
}

// Connections returns subscribed connection IDs in sorted order so each tick
// walks subscribers deterministically.
func (r *Registry) Connections() []ConnID {
	out := make([]ConnID, 0, len(r.subs))
	for conn := range r.subs {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
