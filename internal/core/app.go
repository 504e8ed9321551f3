// Package core wires the bot together: config, logging, the telegram
// adapter, persistence, the reminder service and command routing.
package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/true1853/sunrise-bot/internal/adapters/telegram"
	"github.com/true1853/sunrise-bot/internal/config"
	"github.com/true1853/sunrise-bot/internal/geo"
	"github.com/true1853/sunrise-bot/internal/kit"
	"github.com/true1853/sunrise-bot/internal/runtime/supervisor"
	"github.com/true1853/sunrise-bot/internal/solar"
	"github.com/true1853/sunrise-bot/internal/storage"
	"github.com/true1853/sunrise-bot/internal/sunwatch"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
)

const updateQueueSize = 128

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter *telegram.Adapter
	store   storage.Store
	holder  *geo.Holder
	watch   *sunwatch.Service
	cmds    *CommandManager

	sup     *supervisor.Supervisor
	updates chan kit.Update
	cfgCh   chan *config.Config
}

func NewApp(configPath string) (*App, error) {
	mgr := config.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	boot := logx.NewConsole(cfg.Logging.Level)

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, boot)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	logSvc, log := logx.New(toLogxConfig(cfg.Logging), adapter)
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	applyLogTarget(logSvc, cfg, log)

	store, err := storage.Open(toStorageConfig(cfg.Storage), log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	calc, err := solar.New(cfg.Sun.Provider)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	watchCfg, err := toSunwatchConfig(cfg.Sun)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	holder := geo.NewHolder()
	watch := sunwatch.New(watchCfg, calc, holder, adapter, log.With(logx.String("comp", "sunwatch")))
	cmds := NewCommandManager(adapter, watch, holder, store, log.With(logx.String("comp", "commands")))

	return &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		adapter: adapter,
		store:   store,
		holder:  holder,
		watch:   watch,
		cmds:    cmds,
		updates: make(chan kit.Update, updateQueueSize),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	if a.store != nil {
		lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		loc, ok, err := a.store.LoadLocation(lctx)
		cancel()
		switch {
		case err != nil:
			a.log.Warn("stored location unavailable", logx.Err(err))
		case ok:
			if err := a.holder.Set(loc); err != nil {
				a.log.Warn("stored location invalid", logx.String("location", loc.String()), logx.Err(err))
			} else {
				a.log.Info("location restored", logx.String("location", loc.String()))
			}
		}
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("telegram start: %w", err)
	}

	a.sup.GoRestart("sunwatch.run", a.watch.Run)
	a.sup.Go("commands.dispatch", func(ctx context.Context) error {
		return a.cmds.DispatchLoop(ctx, a.updates)
	})

	a.cfgCh = a.cfgMgr.Subscribe(4)
	a.sup.Go0("config.apply", a.applyLoop)
	a.cfgMgr.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})
	a.sup.Go("config.watch", a.cfgMgr.Watch)

	// Best-effort: a failed menu update does not block startup.
	if mu, ok := any(a.adapter).(kit.CommandMenuUpdater); ok {
		mctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if err := mu.UpdateMenuCommands(mctx, menuCommands); err != nil {
			a.log.Warn("menu commands update failed", logx.Err(err))
		}
		cancel()
	}

	a.log.Info("bot started", logx.String("bot", a.adapter.BotUsername()))
	return nil
}

// applyLoop pushes committed config changes into the running services.
// Telegram token and storage driver changes require a restart.
func (a *App) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(toLogxConfig(cfg.Logging))
			applyLogTarget(a.logSvc, cfg, a.log)
			if watchCfg, err := toSunwatchConfig(cfg.Sun); err == nil {
				a.watch.Apply(watchCfg)
			} else {
				a.log.Warn("sun config not applied", logx.Err(err))
			}
			a.log.Info("config reloaded")
		}
	}
}

// Stop shuts components down in order, spending at most the remaining ctx
// budget. Each step gets its own slice so one hung component cannot eat
// the whole budget.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	step := func(name string, d time.Duration, fn func(ctx context.Context) error) {
		sctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if err := fn(sctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("shutdown step failed", logx.String("step", name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	step("telegram", 3*time.Second, a.adapter.Stop)
	if a.sup != nil {
		step("supervisor", 5*time.Second, a.sup.Stop)
	}
	if a.cfgCh != nil {
		a.cfgMgr.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	if a.store != nil {
		step("storage", 2*time.Second, func(context.Context) error { return a.store.Close() })
	}

	a.log.Info("bot stopped")
	step("logging", time.Second, func(context.Context) error { return a.logSvc.Close() })

	return errors.Join(errs...)
}

func applyLogTarget(svc *logx.Service, cfg *config.Config, log logx.Logger) {
	raw := strings.TrimSpace(cfg.Telegram.GroupLog)
	if raw == "" || !cfg.Logging.Telegram.Enabled {
		svc.SetTelegramTarget(0, 0)
		return
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn("telegram.group_log is not a chat id", logx.String("value", raw))
		return
	}
	svc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
}

func toLogxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			ThreadID:   c.Telegram.ThreadID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func toStorageConfig(c *config.StorageConfig) storage.Config {
	if c == nil {
		return storage.Config{}
	}
	busy, _ := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	return storage.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}
}

func toSunwatchConfig(c config.SunConfig) (sunwatch.Config, error) {
	out := sunwatch.Config{RatePerSec: c.RatePerSec, Timezone: c.Timezone}

	for i, raw := range c.Offsets {
		d, err := config.ParseDurationField(fmt.Sprintf("sun.offsets[%d]", i), raw)
		if err != nil {
			return sunwatch.Config{}, err
		}
		if d <= 0 {
			return sunwatch.Config{}, fmt.Errorf("sun.offsets[%d]: must be > 0", i)
		}
		out.Offsets = append(out.Offsets, d)
	}

	var err error
	if out.TickInterval, err = config.ParseDurationField("sun.tick_interval", c.TickInterval); err != nil {
		return sunwatch.Config{}, err
	}
	if out.Window, err = config.ParseDurationField("sun.window", c.Window); err != nil {
		return sunwatch.Config{}, err
	}
	if out.SendTimeout, err = config.ParseDurationField("sun.send_timeout", c.SendTimeout); err != nil {
		return sunwatch.Config{}, err
	}
	if strings.TrimSpace(c.PurgeAt) != "" {
		if out.PurgeHour, out.PurgeMinute, err = config.ParseHHMM("sun.purge_at", c.PurgeAt); err != nil {
			return sunwatch.Config{}, err
		}
	}
	return out, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is empty")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if cfg.Storage != nil {
		switch d := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); d {
		case "", "none", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
		if _, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	switch p := strings.ToLower(strings.TrimSpace(cfg.Sun.Provider)); p {
	case "", "noaa", "library":
	default:
		return fmt.Errorf("sun.provider: unknown provider %q", cfg.Sun.Provider)
	}
	if tz := strings.TrimSpace(cfg.Sun.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("sun.timezone: %w", err)
		}
	}
	if _, err := toSunwatchConfig(cfg.Sun); err != nil {
		return err
	}
	return nil
}
