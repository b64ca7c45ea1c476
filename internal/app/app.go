package app

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"latepost/internal/config"
	"latepost/internal/dispatch"
	"latepost/internal/intake"
	"latepost/internal/post"
	rtsup "latepost/internal/runtime/supervisor"
	"latepost/internal/storage"
	"latepost/internal/transport"
	"latepost/internal/transport/telegram"
	logx "latepost/pkg/logx"
)

// App wires config, logging, transport, stores, the dispatch loop and the
// intake flows into one lifecycle.
type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	adapter transport.Adapter
	store   post.Store

	dispatcher *dispatch.Service
	flows      *intake.Service

	sup     *rtsup.Supervisor
	updates chan transport.Update

	lastCfg *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)

	pollTimeout, err := cfg.Telegram.PollTimeoutDuration()
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logxConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))
	applyLogTarget(logSvc, cfg)

	busy, err := cfg.Storage.BusyTimeoutDuration()
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	reg := post.NewRegistry(st)
	queue := post.NewQueue(st)

	dcfg, err := dispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := dispatch.New(dcfg, queue, ad, log.With(logx.String("comp", "dispatch")))
	flows := intake.New(reg, queue, ad, log.With(logx.String("comp", "intake")))

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		_ = ctx
		return validate(c)
	})

	return &App{
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		adapter:    ad,
		store:      st,
		dispatcher: dispatcher,
		flows:      flows,
		lastCfg:    cfg,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))
	a.updates = make(chan transport.Update, 256)

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.dispatcher.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go0("updates.consume", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case up := <-a.updates:
				a.flows.Handle(c, up)
			}
		}
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		err := a.cfgm.Watch(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	})

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup != nil {
		a.sup.Cancel()
	}
	_ = a.dispatcher.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	if a.sup != nil {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = a.sup.Wait(wctx)
		cancel()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

// applyConfig hot-applies the reloadable sections: log sinks/levels, the
// Telegram log target, and the dispatch interval. Token and storage changes
// need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	changed, attrs := config.SummarizeChange(a.lastCfg, cfg)
	a.lastCfg = cfg
	if len(changed) == 0 {
		return
	}
	a.log.Info("applying config change", append([]logx.Field{logx.Any("sections", changed)}, attrs...)...)

	a.logs.Apply(logxConfig(cfg))
	applyLogTarget(a.logs, cfg)

	if dcfg, err := dispatchConfig(cfg); err == nil {
		a.dispatcher.Apply(dcfg)
	} else {
		a.log.Warn("dispatch config rejected", logx.Err(err))
	}
}

func validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := cfg.Telegram.PollTimeoutDuration(); err != nil {
		return err
	}
	if _, err := cfg.Dispatch.IntervalDuration(); err != nil {
		return err
	}
	if _, err := cfg.Storage.BusyTimeoutDuration(); err != nil {
		return err
	}
	if gl := strings.TrimSpace(cfg.Telegram.GroupLog); gl != "" {
		if _, err := strconv.ParseInt(gl, 10, 64); err != nil {
			return errors.New("telegram.group_log must be a chat id")
		}
	}
	return nil
}

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func applyLogTarget(logs *logx.Service, cfg *config.Config) {
	gl := strings.TrimSpace(cfg.Telegram.GroupLog)
	if gl == "" {
		logs.SetTelegramTarget(0)
		return
	}
	if chatID, err := strconv.ParseInt(gl, 10, 64); err == nil {
		logs.SetTelegramTarget(chatID)
	}
}

func dispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	interval, err := cfg.Dispatch.IntervalDuration()
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		Enabled:         cfg.Dispatch.DispatchEnabled(),
		Interval:        interval,
		FallbackGroupID: strings.TrimSpace(cfg.Dispatch.FallbackGroupID),
	}, nil
}
