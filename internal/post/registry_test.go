package post_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"latepost/internal/post"
	"latepost/internal/storage"
)

func TestRegistryAddLookupList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := post.NewRegistry(storage.OpenMemory())

	if err := reg.Add(ctx, "news", "-100"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(ctx, "memes", "-200"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	id, err := reg.LookupID(ctx, "news")
	if err != nil || id != "-100" {
		t.Fatalf("LookupID = %q, %v; want -100, nil", id, err)
	}

	ds, err := reg.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []post.Destination{{Name: "news", GroupID: "-100"}, {Name: "memes", GroupID: "-200"}}
	if !reflect.DeepEqual(ds, want) {
		t.Fatalf("ListAll = %+v, want %+v", ds, want)
	}
}

func TestRegistryAddLastWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := post.NewRegistry(storage.OpenMemory())

	if err := reg.Add(ctx, "news", "-100"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(ctx, "news", "-999"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ds, _ := reg.ListAll(ctx)
	if len(ds) != 1 {
		t.Fatalf("duplicate name produced %d entries, want 1", len(ds))
	}
	if id, _ := reg.LookupID(ctx, "news"); id != "-999" {
		t.Fatalf("LookupID after re-add = %q, want -999", id)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	t.Parallel()
	reg := post.NewRegistry(storage.OpenMemory())
	_, err := reg.LookupID(context.Background(), "nope")
	if !errors.Is(err, post.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := post.NewRegistry(storage.OpenMemory())

	// Removing from an empty registry never raises.
	if err := reg.Remove(ctx, "absent"); err != nil {
		t.Fatalf("Remove on empty: %v", err)
	}

	_ = reg.Add(ctx, "news", "-100")
	if err := reg.Remove(ctx, "news"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := reg.LookupID(ctx, "news"); !errors.Is(err, post.ErrNotFound) {
		t.Fatalf("entry survived removal: err = %v", err)
	}
}

func TestNamesWithPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.OpenMemory()
	reg := post.NewRegistry(st)
	queue := post.NewQueue(st)

	_ = reg.Add(ctx, "news", "-100")
	_ = reg.Add(ctx, "memes", "-200")
	_ = reg.Add(ctx, "quiet", "-300")

	// Two deliveries to the same destination must yield its name once.
	_ = queue.Append(ctx, post.Delivery{ID: 1, Scheduled: "13-11-2023 18:30", UTC: "UTC+0", GroupID: "-100"})
	_ = queue.Append(ctx, post.Delivery{ID: 2, Scheduled: "14-11-2023 10:00", UTC: "UTC+0", GroupID: "-100"})
	_ = queue.Append(ctx, post.Delivery{ID: 3, Scheduled: "15-11-2023 09:00", UTC: "UTC+2", GroupID: "-200"})

	names, err := reg.NamesWithPending(ctx)
	if err != nil {
		t.Fatalf("NamesWithPending: %v", err)
	}
	want := []string{"news", "memes"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("NamesWithPending = %v, want %v", names, want)
	}
}
