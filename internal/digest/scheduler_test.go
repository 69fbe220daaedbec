package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nesto/internal/model"
)

func testScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		DailyHour:     6,
		WeeklyHour:    18,
		WeeklyWeekday: time.Sunday,
		Location:      time.UTC,
		MailEnabled:   true,
		TickInterval:  time.Minute,
	}
}

func newTestScheduler(cfg ScheduleConfig, runner BatchRunner, clock Clock, opts ...SchedulerOption) *Scheduler {
	return NewScheduler(cfg, runner, zap.NewNop(), append([]SchedulerOption{WithClock(clock)}, opts...)...)
}

func TestTickDailyFiresOncePerDay(t *testing.T) {
	runner := &fakeRunner{}
	clock := &fixedClock{now: at(2026, 3, 2, 6, 0)}
	s := newTestScheduler(testScheduleConfig(), runner, clock)
	ctx := context.Background()

	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(ctx))
	// a second tick inside the same minute does nothing
	clock.now = clock.now.Add(30 * time.Second)
	assert.Empty(t, s.Tick(ctx))
	assert.Equal(t, 1, runner.count())
	assert.True(t, s.State().LastDailySent.Equal(at(2026, 3, 2, 6, 0)))

	clock.now = at(2026, 3, 3, 6, 0)
	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(ctx))
	assert.Equal(t, 2, runner.count())
}

func TestTickOutsideBoundary(t *testing.T) {
	runner := &fakeRunner{}
	clock := &fixedClock{}
	s := newTestScheduler(testScheduleConfig(), runner, clock)

	for _, now := range []time.Time{
		at(2026, 3, 2, 6, 1),
		at(2026, 3, 2, 5, 59),
		at(2026, 3, 2, 7, 0),
		at(2026, 3, 1, 17, 0),
	} {
		clock.now = now
		assert.Empty(t, s.Tick(context.Background()), now)
	}
	assert.Zero(t, runner.count())
}

func TestTickWeekly(t *testing.T) {
	runner := &fakeRunner{}
	clock := &fixedClock{now: at(2026, 3, 2, 18, 0)} // Monday
	s := newTestScheduler(testScheduleConfig(), runner, clock)
	ctx := context.Background()

	assert.Empty(t, s.Tick(ctx))

	clock.now = at(2026, 3, 1, 18, 0) // Sunday
	assert.Equal(t, []model.DigestPeriod{model.PeriodWeekly}, s.Tick(ctx))
	assert.Empty(t, s.Tick(ctx))
	require.Equal(t, 1, runner.count())
	assert.Equal(t, model.PeriodWeekly, runner.calls[0].Period)
}

func TestTickDailyAndWeeklySameHour(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.WeeklyHour = cfg.DailyHour
	runner := &fakeRunner{}
	s := newTestScheduler(cfg, runner, &fixedClock{now: at(2026, 3, 1, 6, 0)})

	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily, model.PeriodWeekly}, s.Tick(context.Background()))
}

func TestTickMailDisabled(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.MailEnabled = false
	runner := &fakeRunner{}
	s := newTestScheduler(cfg, runner, &fixedClock{now: at(2026, 3, 1, 6, 0)})

	assert.Empty(t, s.Tick(context.Background()))
	assert.Zero(t, runner.count())
	assert.True(t, s.State().LastDailySent.IsZero())
}

func TestTickListingFailureNotRecorded(t *testing.T) {
	runner := &fakeRunner{err: errors.New("db down")}
	clock := &fixedClock{now: at(2026, 3, 2, 6, 0)}
	s := newTestScheduler(testScheduleConfig(), runner, clock)
	ctx := context.Background()

	assert.Empty(t, s.Tick(ctx))
	assert.True(t, s.State().LastDailySent.IsZero())

	runner.err = nil
	clock.now = clock.now.Add(20 * time.Second)
	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(ctx))
	assert.Equal(t, 2, runner.count())
}

func TestTickListingFailureMissesBoundary(t *testing.T) {
	runner := &fakeRunner{err: errors.New("db down")}
	clock := &fixedClock{now: at(2026, 3, 2, 6, 0)}
	s := newTestScheduler(testScheduleConfig(), runner, clock)
	ctx := context.Background()

	assert.Empty(t, s.Tick(ctx))

	// at a one-minute cadence the next tick is past minute 0
	runner.err = nil
	clock.now = at(2026, 3, 2, 6, 1)
	assert.Empty(t, s.Tick(ctx))
	assert.Equal(t, 1, runner.count())
	assert.True(t, s.State().LastDailySent.IsZero())

	clock.now = at(2026, 3, 3, 6, 0)
	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(ctx))
	assert.Equal(t, 2, runner.count())
}

func TestTickUsesConfiguredLocation(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.Location = time.FixedZone("UTC+2", 2*3600)
	runner := &fakeRunner{}
	s := newTestScheduler(cfg, runner, &fixedClock{now: at(2026, 3, 2, 4, 0)})

	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(context.Background()))
	require.Equal(t, 1, runner.count())
	assert.Equal(t, 6, runner.calls[0].Now.Hour())
}

func TestTickBoundaryGuard(t *testing.T) {
	guard := &fakeGuard{seen: map[string]bool{
		BoundaryKey(model.PeriodDaily, at(2026, 3, 2, 0, 0)): true,
	}}
	runner := &fakeRunner{}
	clock := &fixedClock{now: at(2026, 3, 2, 6, 0)}
	s := newTestScheduler(testScheduleConfig(), runner, clock, WithBoundaryGuard(guard))

	// another process already handled today
	assert.Equal(t, []model.DigestPeriod{model.PeriodDaily}, s.Tick(context.Background()))
	assert.Zero(t, runner.count())

	clock.now = at(2026, 3, 3, 6, 0)
	s.Tick(context.Background())
	assert.Equal(t, 1, runner.count())

	guard.err = errors.New("redis down")
	clock.now = at(2026, 3, 4, 6, 0)
	s.Tick(context.Background())
	assert.Equal(t, 2, runner.count(), "guard errors fall back to in-memory state")
}

func TestRunReturnsOnCancel(t *testing.T) {
	cfg := testScheduleConfig()
	cfg.TickInterval = time.Hour
	s := newTestScheduler(cfg, &fakeRunner{}, &fixedClock{now: at(2026, 3, 2, 12, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestBoundaryKey(t *testing.T) {
	assert.Equal(t, "digest:weekly:2026-03-01", BoundaryKey(model.PeriodWeekly, at(2026, 3, 1, 18, 0)))
}
