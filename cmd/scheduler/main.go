package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"nesto/config"
	"nesto/internal/digest"
	"nesto/internal/repository"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/mailer"
	redisclient "nesto/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	loc, err := cfg.Digest.Location()
	if err != nil {
		log.Fatal("Invalid timezone", zap.Error(err))
	}
	weekday, err := cfg.Digest.Weekday()
	if err != nil {
		log.Fatal("Invalid weekly weekday", zap.Error(err))
	}

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	mail := mailer.New(cfg.SMTP, log)
	if !mail.Enabled() {
		log.Warn("SMTP host not configured, digests will not be sent")
	}

	runner, err := digest.New(repository.NewStore(dbConn, loc), digest.MailSender{Mailer: mail}, loc, log)
	if err != nil {
		log.Fatal("Failed to init digest runner", zap.Error(err))
	}

	var opts []digest.SchedulerOption
	if cfg.Digest.PersistBoundary {
		rdb, err := redisclient.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to init Redis", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, digest.WithBoundaryGuard(digest.NewRedisBoundaryGuard(rdb)))
	}

	scheduler := digest.NewScheduler(digest.ScheduleConfig{
		DailyHour:     cfg.Digest.DailyHour,
		WeeklyHour:    cfg.Digest.WeeklyHour,
		WeeklyWeekday: weekday,
		Location:      loc,
		MailEnabled:   mail.Enabled(),
		TickInterval:  cfg.Digest.TickInterval,
	}, runner, log, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Digest scheduler stopped with error", zap.Error(err))
	}
	log.Info("nesto scheduler shutdown complete")
}
