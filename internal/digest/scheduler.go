package digest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nesto/internal/model"
	"nesto/internal/recurrence"
	"nesto/pkg/logger"
	"nesto/pkg/trace"
)

// BatchRunner runs one digest batch. *Runner implements it.
type BatchRunner interface {
	Run(ctx context.Context, period model.DigestPeriod, now time.Time) (RunStats, error)
}

type ScheduleConfig struct {
	DailyHour     int
	WeeklyHour    int
	WeeklyWeekday time.Weekday
	Location      *time.Location
	MailEnabled   bool
	TickInterval  time.Duration
}

// State is the per-process record of the last day each digest fired.
// A zero time means never.
type State struct {
	LastDailySent  time.Time
	LastWeeklySent time.Time
}

// Scheduler fires the daily and weekly digests at their boundary minute.
// Only the goroutine running Run/Tick touches its state.
type Scheduler struct {
	cfg    ScheduleConfig
	runner BatchRunner
	clock  Clock
	guard  BoundaryGuard
	state  State
	logger *zap.Logger
}

type SchedulerOption func(*Scheduler)

func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithBoundaryGuard makes firing also depend on an external marker.
func WithBoundaryGuard(g BoundaryGuard) SchedulerOption {
	return func(s *Scheduler) { s.guard = g }
}

func NewScheduler(cfg ScheduleConfig, runner BatchRunner, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	s := &Scheduler{
		cfg:    cfg,
		runner: runner,
		clock:  SystemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) State() State {
	return s.state
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("digest scheduler started",
		zap.Int("daily_hour", s.cfg.DailyHour),
		zap.Int("weekly_hour", s.cfg.WeeklyHour),
		zap.String("weekly_weekday", s.cfg.WeeklyWeekday.String()),
		zap.String("location", s.cfg.Location.String()),
		zap.Bool("mail_enabled", s.cfg.MailEnabled),
	)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("digest scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick evaluates both boundaries once and returns the periods handled on
// this tick.
func (s *Scheduler) Tick(ctx context.Context) []model.DigestPeriod {
	if !s.cfg.MailEnabled {
		return nil
	}
	now := s.clock.Now().In(s.cfg.Location)
	if now.Minute() != 0 {
		return nil
	}

	var fired []model.DigestPeriod
	if now.Hour() == s.cfg.DailyHour && !recurrence.SameDay(s.state.LastDailySent, now) {
		if s.fire(ctx, model.PeriodDaily, now) {
			s.state.LastDailySent = now
			fired = append(fired, model.PeriodDaily)
		}
	}
	if now.Weekday() == s.cfg.WeeklyWeekday && now.Hour() == s.cfg.WeeklyHour &&
		!recurrence.SameDay(s.state.LastWeeklySent, now) {
		if s.fire(ctx, model.PeriodWeekly, now) {
			s.state.LastWeeklySent = now
			fired = append(fired, model.PeriodWeekly)
		}
	}
	return fired
}

// fire runs one batch and reports whether the boundary counts as handled.
// Per-user send failures still count; a failed user listing does not.
func (s *Scheduler) fire(ctx context.Context, period model.DigestPeriod, now time.Time) bool {
	ctx = trace.WithContext(ctx, trace.NewID())
	log := logger.WithTrace(ctx, s.logger).With(zap.String("period", string(period)))

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, period, now)
		switch {
		case err != nil:
			log.Warn("digest boundary guard unavailable, using in-memory state", zap.Error(err))
		case !ok:
			log.Info("digest boundary already handled")
			return true
		}
	}

	stats, err := s.runner.Run(ctx, period, now)
	if err != nil {
		log.Error("digest batch failed", zap.Error(err))
		return false
	}
	log.Info("digest boundary fired", zap.Int("sent", stats.Sent), zap.Int("failed", stats.Failed))
	return true
}
