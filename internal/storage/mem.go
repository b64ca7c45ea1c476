package storage

import (
	"context"
	"sync"

	"latepost/internal/post"
)

// memStore keeps both collections in process memory. It backs the "mem"
// driver and the store fakes used across package tests.
type memStore struct {
	mu           sync.Mutex
	destinations []post.Destination
	deliveries   []post.Delivery
}

// OpenMemory returns an empty ephemeral store.
func OpenMemory() post.Store {
	return &memStore{}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) LoadDestinations(ctx context.Context) ([]post.Destination, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]post.Destination(nil), s.destinations...), nil
}

func (s *memStore) SaveDestinations(ctx context.Context, ds []post.Destination) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations = append([]post.Destination(nil), ds...)
	return nil
}

func (s *memStore) LoadDeliveries(ctx context.Context) ([]post.Delivery, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]post.Delivery(nil), s.deliveries...), nil
}

func (s *memStore) SaveDeliveries(ctx context.Context, ds []post.Delivery) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append([]post.Delivery(nil), ds...)
	return nil
}
