package post

import (
	"context"
	"strings"
	"sync"
)

// Registry is the durable name → destination-id mapping.
//
// All mutations are read-modify-write cycles over the whole collection, so a
// single mutex serializes them against concurrent intake sessions.
type Registry struct {
	mu    sync.Mutex
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Add registers a destination. Adding an existing name replaces its entry
// (last-wins) so names stay usable as lookup keys.
func (r *Registry) Add(ctx context.Context, name, groupID string) error {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, err := r.store.LoadDestinations(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range ds {
		if ds[i].Name == name {
			ds[i].GroupID = groupID
			replaced = true
		}
	}
	if !replaced {
		ds = append(ds, Destination{Name: name, GroupID: groupID})
	}
	return r.store.SaveDestinations(ctx, ds)
}

// Remove deletes all entries with the given name. Removing an unknown name
// is a no-op, not an error.
func (r *Registry) Remove(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, err := r.store.LoadDestinations(ctx)
	if err != nil {
		return err
	}
	kept := ds[:0]
	for _, d := range ds {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	return r.store.SaveDestinations(ctx, kept)
}

// LookupID resolves a name to its destination id, or ErrNotFound.
func (r *Registry) LookupID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	ds, err := r.store.LoadDestinations(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range ds {
		if d.Name == name {
			return d.GroupID, nil
		}
	}
	return "", ErrNotFound
}

// ListAll returns all destinations in insertion order.
func (r *Registry) ListAll(ctx context.Context) ([]Destination, error) {
	return r.store.LoadDestinations(ctx)
}

// NamesWithPending returns the names of destinations that currently have at
// least one pending delivery referencing them, each at most once, in
// registry order.
func (r *Registry) NamesWithPending(ctx context.Context) ([]string, error) {
	ds, err := r.store.LoadDestinations(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.store.LoadDeliveries(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(pending))
	for _, d := range pending {
		ids[d.GroupID] = struct{}{}
	}

	var names []string
	seen := map[string]struct{}{}
	for _, d := range ds {
		if _, ok := ids[d.GroupID]; !ok {
			continue
		}
		if _, dup := seen[d.Name]; dup {
			continue
		}
		seen[d.Name] = struct{}{}
		names = append(names, d.Name)
	}
	return names, nil
}
