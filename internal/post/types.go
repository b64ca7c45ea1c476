package post

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound signals an unresolved destination name.
	ErrNotFound = errors.New("not found")
	// ErrBadFormat signals user input that does not match the expected pattern.
	ErrBadFormat = errors.New("bad format")
)

// Destination is a named delivery target. Name is the lookup key; GroupID is
// the opaque identifier the transport uses to address the chat.
type Destination struct {
	Name    string `json:"name"`
	GroupID string `json:"group_id"`
}

// Delivery is a scheduled, not-yet-sent message.
//
// Scheduled keeps the user-entered local time string ("DD-MM-YYYY HH:MM");
// UTC keeps the chosen offset label ("UTC+3"). The pair is resolved to an
// absolute instant with Normalize. Payload is opaque to this package and is
// replayed verbatim by the transport at dispatch time.
type Delivery struct {
	ID        int             `json:"id"`
	Scheduled string          `json:"scheduled"`
	Payload   json.RawMessage `json:"post"`
	UTC       string          `json:"utc"`
	GroupID   string          `json:"group_id"`
}

// Store is the persistence capability the registry and queue run on.
//
// Loads must treat missing or corrupt durable state as the empty collection,
// never as an error: it mirrors first-run initialization. Saves overwrite
// the whole collection.
type Store interface {
	LoadDestinations(ctx context.Context) ([]Destination, error)
	SaveDestinations(ctx context.Context, ds []Destination) error
	LoadDeliveries(ctx context.Context) ([]Delivery, error)
	SaveDeliveries(ctx context.Context, ds []Delivery) error
	Close() error
}
