package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"latepost/internal/post"
	"latepost/internal/storage"
	"latepost/internal/transport"
	logx "latepost/pkg/logx"
)

// fakeAdapter records SendCopy calls and can be told to fail.
type fakeAdapter struct {
	mu     sync.Mutex
	copies []copyCall
	fail   map[string]error // keyed by destination id
}

type copyCall struct {
	dest    string
	payload string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }
func (f *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}

func (f *fakeAdapter) SendCopy(ctx context.Context, destID string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[destID]; err != nil {
		return err
	}
	f.copies = append(f.copies, copyCall{dest: destID, payload: string(payload)})
	return nil
}

func (f *fakeAdapter) calls() []copyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]copyCall(nil), f.copies...)
}

func newTestService(t *testing.T, cfg Config) (*Service, *post.Queue, *fakeAdapter) {
	t.Helper()
	queue := post.NewQueue(storage.OpenMemory())
	ad := &fakeAdapter{}
	cfg.Enabled = true
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return New(cfg, queue, ad, logx.Nop()), queue, ad
}

func TestTickWindowBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, queue, ad := newTestService(t, Config{})

	// Scheduled instant resolved from the entered time and offset label.
	scheduled := time.Date(2023, 11, 13, 21, 30, 0, 0, time.UTC) // 18:30 UTC+3
	d := post.Delivery{ID: 1, Scheduled: "13-11-2023 18:30", UTC: "UTC+3", GroupID: "-100",
		Payload: json.RawMessage(`{"chat_id":5,"message_id":1}`)}
	if err := queue.Append(ctx, d); err != nil {
		t.Fatal(err)
	}

	// 101 seconds early: outside the window, untouched.
	s.tick(ctx, scheduled.Add(-101*time.Second))
	if got := ad.calls(); len(got) != 0 {
		t.Fatalf("early tick dispatched: %+v", got)
	}
	if items, _ := queue.ListAll(ctx); len(items) != 1 {
		t.Fatalf("early tick consumed the delivery")
	}

	// 99 seconds early: inside the window, dispatched exactly once and removed.
	s.tick(ctx, scheduled.Add(-99*time.Second))
	got := ad.calls()
	if len(got) != 1 {
		t.Fatalf("want 1 dispatch, got %d", len(got))
	}
	if got[0].dest != "-100" {
		t.Fatalf("dest = %s, want -100", got[0].dest)
	}
	if got[0].payload != `{"chat_id":5,"message_id":1}` {
		t.Fatalf("payload not replayed verbatim: %s", got[0].payload)
	}
	if items, _ := queue.ListAll(ctx); len(items) != 0 {
		t.Fatalf("dispatched delivery still pending: %+v", items)
	}

	// Re-ticking dispatches nothing further.
	s.tick(ctx, scheduled)
	if got := ad.calls(); len(got) != 1 {
		t.Fatalf("delivery dispatched twice: %+v", got)
	}
}

func TestTickFailureIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, queue, ad := newTestService(t, Config{})
	ad.fail = map[string]error{"-bad": errors.New("transport down")}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = queue.Append(ctx, post.Delivery{ID: 1, Scheduled: "01-03-2024 12:00", UTC: "UTC+0", GroupID: "-bad",
		Payload: json.RawMessage(`{"chat_id":1,"message_id":1}`)})
	_ = queue.Append(ctx, post.Delivery{ID: 2, Scheduled: "01-03-2024 12:00", UTC: "UTC+0", GroupID: "-ok",
		Payload: json.RawMessage(`{"chat_id":1,"message_id":2}`)})

	s.tick(ctx, now)

	// The failing delivery must not abort the rest of the tick.
	got := ad.calls()
	if len(got) != 1 || got[0].dest != "-ok" {
		t.Fatalf("healthy delivery not dispatched: %+v", got)
	}
	// The failed one is retained for the next tick.
	items, _ := queue.ListAll(ctx)
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("failed delivery not retained: %+v", items)
	}
}

func TestTickFallbackDestination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, queue, ad := newTestService(t, Config{FallbackGroupID: "-777"})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = queue.Append(ctx, post.Delivery{ID: 9, Scheduled: "01-03-2024 12:00", UTC: "UTC+0",
		Payload: json.RawMessage(`{"chat_id":1,"message_id":9}`)})

	s.tick(ctx, now)
	got := ad.calls()
	if len(got) != 1 || got[0].dest != "-777" {
		t.Fatalf("fallback destination not used: %+v", got)
	}
}

func TestTickSkipsUnparsableSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, queue, ad := newTestService(t, Config{})

	_ = queue.Append(ctx, post.Delivery{ID: 1, Scheduled: "garbage", UTC: "UTC+0", GroupID: "-100"})
	s.tick(ctx, time.Now().UTC())

	if got := ad.calls(); len(got) != 0 {
		t.Fatalf("unparsable schedule dispatched: %+v", got)
	}
	// Kept in the store so the operator can still see and remove it.
	if items, _ := queue.ListAll(ctx); len(items) != 1 {
		t.Fatal("unparsable delivery dropped")
	}
}

func TestTickHonorsOffset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, queue, ad := newTestService(t, Config{})

	// 18:30 UTC-5 resolves to 13:30 UTC; at 18:30 UTC it is already past
	// the window.
	_ = queue.Append(ctx, post.Delivery{ID: 1, Scheduled: "13-11-2023 18:30", UTC: "UTC-5", GroupID: "-100",
		Payload: json.RawMessage(`{"chat_id":1,"message_id":1}`)})

	s.tick(ctx, time.Date(2023, 11, 13, 18, 30, 0, 0, time.UTC))
	if got := ad.calls(); len(got) != 0 {
		t.Fatalf("offset ignored at dispatch: %+v", got)
	}
	s.tick(ctx, time.Date(2023, 11, 13, 13, 30, 0, 0, time.UTC))
	if got := ad.calls(); len(got) != 1 {
		t.Fatalf("offset-resolved instant not dispatched: %+v", got)
	}
}
