package dispatch

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"latepost/internal/post"
	"latepost/internal/transport"
	logx "latepost/pkg/logx"
)

// Window is the dispatch tolerance around "now". A delivery is due when its
// scheduled instant is strictly closer than this. Paired with the default
// 1-minute tick, every due delivery is seen by at least one tick.
const Window = 100 * time.Second

const defaultInterval = time.Minute

type Config struct {
	Enabled  bool
	Interval time.Duration
	// FallbackGroupID receives deliveries without a destination id
	// (single-destination deployments).
	FallbackGroupID string
}

type Service struct {
	log   logx.Logger
	queue *post.Queue
	ad    transport.Adapter

	mu     sync.Mutex
	cfg    Config
	c      *cron.Cron
	entry  cron.EntryID
	runCtx context.Context

	// now is swappable in tests.
	now func() time.Time
}

func New(cfg Config, queue *post.Queue, ad transport.Adapter, log logx.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:   log,
		queue: queue,
		ad:    ad,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled {
		s.log.Info("dispatch disabled")
		return nil
	}
	if s.c != nil {
		return nil
	}
	s.runCtx = ctx
	s.c = cron.New()
	id, err := s.c.AddFunc("@every "+s.cfg.Interval.String(), s.runTick)
	if err != nil {
		s.c = nil
		return err
	}
	s.entry = id
	s.c.Start()
	s.log.Info("dispatch started", logx.Duration("interval", s.cfg.Interval))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	// cron's Stop context completes when running jobs finish.
	stopped := c.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply updates the scan interval and fallback destination at runtime.
func (s *Service) Apply(cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	intervalChanged := cfg.Interval != s.cfg.Interval
	s.cfg = cfg
	if s.c == nil || !intervalChanged {
		return
	}
	s.c.Remove(s.entry)
	id, err := s.c.AddFunc("@every "+cfg.Interval.String(), s.runTick)
	if err != nil {
		s.log.Error("dispatch interval rejected", logx.Duration("interval", cfg.Interval), logx.Err(err))
		return
	}
	s.entry = id
	s.log.Info("dispatch interval changed", logx.Duration("interval", cfg.Interval))
}

func (s *Service) runTick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	// cron does not recover job panics; a bad payload must not kill the
	// process.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("dispatch tick panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	s.tick(ctx, s.now())
}

// tick scans all pending deliveries once against the given instant.
// A failure on one delivery never aborts the rest of the scan; the item is
// kept in the store so the next tick retries it while it stays in window.
func (s *Service) tick(ctx context.Context, now time.Time) {
	items, err := s.queue.ListAll(ctx)
	if err != nil {
		s.log.Error("delivery scan failed", logx.Err(err))
		return
	}

	s.mu.Lock()
	fallback := s.cfg.FallbackGroupID
	s.mu.Unlock()

	for _, d := range items {
		at, err := post.Normalize(d.UTC, d.Scheduled)
		if err != nil {
			s.log.Warn("delivery has unparsable schedule; skipping",
				logx.Int("id", d.ID), logx.String("scheduled", d.Scheduled), logx.Err(err))
			continue
		}
		if absDiff(at, now) >= Window {
			continue
		}

		dest := strings.TrimSpace(d.GroupID)
		if dest == "" {
			dest = fallback
		}
		if dest == "" {
			s.log.Warn("delivery due but has no destination", logx.Int("id", d.ID))
			continue
		}

		if err := s.ad.SendCopy(ctx, dest, d.Payload); err != nil {
			s.log.Error("dispatch failed; delivery retained",
				logx.Int("id", d.ID), logx.String("dest", dest), logx.Err(err))
			continue
		}
		if err := s.queue.DeleteByID(ctx, d.ID); err != nil {
			s.log.Error("delivered but delete failed", logx.Int("id", d.ID), logx.Err(err))
			continue
		}
		s.log.Info("delivery dispatched",
			logx.Int("id", d.ID), logx.String("dest", dest), logx.Time("scheduled_utc", at))
	}
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
