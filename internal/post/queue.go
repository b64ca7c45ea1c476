package post

import (
	"context"
	"sync"
)

// Queue is the durable collection of pending deliveries.
//
// Append does not enforce id uniqueness; DeleteByID removes every match,
// which keeps cleanup correct even if duplicates ever appear.
type Queue struct {
	mu    sync.Mutex
	store Store
}

func NewQueue(store Store) *Queue {
	return &Queue{store: store}
}

func (q *Queue) Append(ctx context.Context, d Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ds, err := q.store.LoadDeliveries(ctx)
	if err != nil {
		return err
	}
	ds = append(ds, d)
	return q.store.SaveDeliveries(ctx, ds)
}

// ListAll returns all pending deliveries in insertion order.
func (q *Queue) ListAll(ctx context.Context) ([]Delivery, error) {
	return q.store.LoadDeliveries(ctx)
}

// ListByDestination filters pending deliveries by destination id,
// preserving order.
func (q *Queue) ListByDestination(ctx context.Context, groupID string) ([]Delivery, error) {
	ds, err := q.store.LoadDeliveries(ctx)
	if err != nil {
		return nil, err
	}
	var out []Delivery
	for _, d := range ds {
		if d.GroupID == groupID {
			out = append(out, d)
		}
	}
	return out, nil
}

// DeleteByID removes all deliveries with the given id. Deleting an unknown
// id leaves the collection unchanged.
func (q *Queue) DeleteByID(ctx context.Context, id int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ds, err := q.store.LoadDeliveries(ctx)
	if err != nil {
		return err
	}
	kept := ds[:0]
	for _, d := range ds {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	return q.store.SaveDeliveries(ctx, kept)
}
