package sunwatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/true1853/sunrise-bot/internal/geo"
	"github.com/true1853/sunrise-bot/internal/kit"
	"github.com/true1853/sunrise-bot/internal/solar"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
)

// ErrNoEvents is returned when the sun neither rises nor sets on the
// requested date (polar day or polar night).
var ErrNoEvents = errors.New("sunwatch: no sunrise or sunset on this date")

// Sender is the outbound boundary the watcher needs. The telegram adapter
// implements it.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

// Config controls the reminder loop. Zero fields take defaults.
type Config struct {
	// Offsets are the reminder lead times before each event, in firing order.
	Offsets []time.Duration

	TickInterval time.Duration

	// Window is how long past the fire time an event stays deliverable.
	// Keep it >= TickInterval or events can slip between ticks.
	Window time.Duration

	// Daily ledger purge wall-clock time.
	PurgeHour   int
	PurgeMinute int

	SendTimeout time.Duration
	RatePerSec  int

	// Timezone is the fallback zone for the purge schedule while no
	// location is configured.
	Timezone string
}

func (c Config) withDefaults() Config {
	if len(c.Offsets) == 0 {
		c.Offsets = []time.Duration{10 * time.Minute}
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 30 * time.Second
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Window < c.TickInterval {
		c.Window = c.TickInterval
	}
	if c.PurgeHour == 0 && c.PurgeMinute == 0 {
		c.PurgeMinute = 1 // 00:01
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 20
	}
	return c
}

// Day is one calendar day's solar events expressed in the location's zone.
// Zero Rise/Set means the event does not occur on that date.
type Day struct {
	Date time.Time // local midnight
	Rise time.Time
	Set  time.Time
}

// Service owns all reminder state: the subscription registry, the delivery
// ledger and the tick loop. Location is read through the shared holder.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	sender Sender
	calc   solar.Calculator
	loc    *geo.Holder

	reg     *Registry
	ledger  *Ledger
	limiter *rate.Limiter

	cron *cron.Cron

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config, calc solar.Calculator, loc *geo.Holder, sender Sender, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		log:     log,
		sender:  sender,
		calc:    calc,
		loc:     loc,
		reg:     NewRegistry(),
		ledger:  NewLedger(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		now:     time.Now,
	}
}

func (s *Service) Registry() *Registry { return s.reg }

// Apply updates loop settings at runtime (offsets, window, tick, rate).
// The purge schedule is fixed at Run time.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.limiter.SetLimit(rate.Limit(cfg.RatePerSec))
	s.limiter.SetBurst(cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Run drives the tick loop until ctx is canceled. A panicking tick is
// recovered and logged; the next tick still runs.
func (s *Service) Run(ctx context.Context) error {
	s.startPurgeCron()
	defer s.stopPurgeCron()

	interval := s.snapshot().TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("reminder loop started",
		logx.Duration("tick", interval),
		logx.Duration("window", s.snapshot().Window))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder loop stopped")
			return nil
		case <-ticker.C:
			s.safeTick(ctx)
			if d := s.snapshot().TickInterval; d != interval {
				interval = d
				ticker.Reset(d)
				s.log.Info("tick interval updated", logx.Duration("tick", d))
			}
		}
	}
}

func (s *Service) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in reminder tick",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	s.tick(ctx)
}

// tick runs one scheduling cycle. Per-chat failures are isolated: delivery
// errors are logged and the key stays unsent, so the event is retried on the
// next tick while its window is still open.
func (s *Service) tick(ctx context.Context) {
	loc, ok := s.loc.Get()
	if !ok {
		return
	}
	tz, err := loc.TZ()
	if err != nil {
		s.log.Warn("invalid location timezone", logx.String("tz", loc.Timezone), logx.Err(err))
		return
	}

	now := s.now()
	local := now.In(tz)

	times, err := s.calc.SunTimes(local.Year(), local.Month(), local.Day(), loc.Lat, loc.Lon)
	if err != nil {
		s.log.Warn("solar computation failed", logx.Float64("lat", loc.Lat), logx.Float64("lon", loc.Lon), logx.Err(err))
		return
	}

	type event struct {
		kind solar.EventKind
		at   time.Time
	}
	events := make([]event, 0, 2)
	if times.HasRise() {
		events = append(events, event{solar.Sunrise, times.Rise})
	}
	if times.HasSet() {
		events = append(events, event{solar.Sunset, times.Set})
	}
	if len(events) == 0 {
		s.log.Debug("polar date, no sun events", logx.String("date", local.Format(time.DateOnly)))
		return
	}

	cfg := s.snapshot()
	date := local.Format(time.DateOnly)

	for _, chatID := range s.reg.Chats() {
		members := s.reg.MembersOf(chatID)
		for _, offset := range cfg.Offsets {
			for _, ev := range events {
				fireAt := ev.at.Add(-offset)
				// Half-open window [fireAt, fireAt+Window).
				if now.Before(fireAt) || !now.Before(fireAt.Add(cfg.Window)) {
					continue
				}
				key := Key{ChatID: chatID, Date: date, Kind: ev.kind, Offset: offset}
				if s.ledger.Sent(key) {
					continue
				}
				html, plain := renderReminder(date, ev.kind, offset, members)
				s.deliver(ctx, key, html, plain)
			}
		}
	}
}

// deliver sends the HTML variant, falls back to plain once, and marks the
// ledger only after a successful send.
func (s *Service) deliver(ctx context.Context, key Key, html, plain string) {
	cfg := s.snapshot()
	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	if err := s.limiter.Wait(sctx); err != nil {
		s.log.Warn("send rate limit wait aborted", logx.Int64("chat_id", key.ChatID), logx.Err(err))
		return
	}

	to := kit.ChatTarget{ChatID: key.ChatID}
	_, err := s.sender.SendText(sctx, to, html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	if err != nil {
		s.log.Warn("reminder send failed, retrying without formatting",
			logx.Int64("chat_id", key.ChatID), logx.String("kind", string(key.Kind)), logx.Err(err))
		_, err = s.sender.SendText(sctx, to, plain, &kit.SendOptions{DisablePreview: true})
	}
	if err != nil {
		// Leave the key unsent: the event stays retryable until its window
		// closes, after which it is missed for the day.
		s.log.Error("reminder delivery failed",
			logx.Int64("chat_id", key.ChatID), logx.String("kind", string(key.Kind)), logx.Err(err))
		return
	}

	s.ledger.MarkSent(key)
	s.log.Info("reminder sent",
		logx.Int64("chat_id", key.ChatID),
		logx.String("kind", string(key.Kind)),
		logx.Duration("offset", key.Offset))
}

// Day computes the solar day containing 'at' for the configured location.
func (s *Service) Day(at time.Time) (Day, error) {
	loc, ok := s.loc.Get()
	if !ok {
		return Day{}, geo.ErrNoLocation
	}
	tz, err := loc.TZ()
	if err != nil {
		return Day{}, err
	}
	local := at.In(tz)
	times, err := s.calc.SunTimes(local.Year(), local.Month(), local.Day(), loc.Lat, loc.Lon)
	if err != nil {
		return Day{}, err
	}
	d := Day{Date: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)}
	if times.HasRise() {
		d.Rise = times.Rise.In(tz)
	}
	if times.HasSet() {
		d.Set = times.Set.In(tz)
	}
	return d, nil
}

// TestFire sends one synthetic sunrise and one synthetic sunset reminder to
// the given chat immediately, bypassing windows and the ledger.
func (s *Service) TestFire(ctx context.Context, chatID int64) error {
	day, err := s.Day(s.now())
	if err != nil {
		return err
	}
	if day.Rise.IsZero() && day.Set.IsZero() {
		return ErrNoEvents
	}

	cfg := s.snapshot()
	offset := cfg.Offsets[0]
	date := day.Date.Format(time.DateOnly)
	to := kit.ChatTarget{ChatID: chatID}

	for _, kind := range []solar.EventKind{solar.Sunrise, solar.Sunset} {
		sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		_, err := s.sender.SendText(sctx, to, renderTest(date, kind, offset), &kit.SendOptions{DisablePreview: true})
		cancel()
		if err != nil {
			return fmt.Errorf("test reminder (%s): %w", kind, err)
		}
	}
	return nil
}

func (s *Service) startPurgeCron() {
	cfg := s.snapshot()
	c := cron.New(cron.WithLocation(s.purgeZone(cfg)))
	spec := fmt.Sprintf("%d %d * * *", cfg.PurgeMinute, cfg.PurgeHour)
	if _, err := c.AddFunc(spec, s.purge); err != nil {
		s.log.Error("purge schedule invalid", logx.String("spec", spec), logx.Err(err))
		return
	}
	c.Start()
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	s.log.Info("daily purge scheduled", logx.String("spec", spec))
}

func (s *Service) stopPurgeCron() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// purgeZone picks the zone the purge cron runs in: the configured fallback,
// else local time. The keep date itself is always computed from the location
// zone at purge time, so a zone mismatch can never drop same-day entries.
func (s *Service) purgeZone(cfg Config) *time.Location {
	if tz := cfg.Timezone; tz != "" {
		if z, err := time.LoadLocation(tz); err == nil {
			return z
		}
		s.log.Warn("invalid purge timezone, using local", logx.String("tz", cfg.Timezone))
	}
	return time.Local
}

func (s *Service) purge() {
	keep := s.now().Format(time.DateOnly)
	if loc, ok := s.loc.Get(); ok {
		if tz, err := loc.TZ(); err == nil {
			keep = s.now().In(tz).Format(time.DateOnly)
		}
	}
	removed := s.ledger.Purge(keep)
	s.log.Info("ledger purged", logx.Int("removed", removed), logx.String("keep", keep))
}
