package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nesto/config"
	"nesto/internal/cli"
	"nesto/internal/digest"
	"nesto/internal/model"
	"nesto/internal/repository"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/mailer"
	"nesto/pkg/outbox"
)

// backend wires the operator commands to the database, mailer and outbox.
type backend struct {
	close  func()
	runner *digest.Runner
	replay *outbox.ReplayService
}

func (b *backend) RunDigest(ctx context.Context, period model.DigestPeriod, now time.Time) (digest.RunStats, error) {
	return b.runner.Run(ctx, period, now)
}

func (b *backend) SendTestDigest(ctx context.Context, userID string, period model.DigestPeriod, now time.Time) error {
	return b.runner.SendTest(ctx, userID, period, now)
}

func (b *backend) ReplayOutboxEvent(ctx context.Context, eventID int64) error {
	return b.replay.ReplayEvent(ctx, eventID)
}

func (b *backend) ReplayFailedOutbox(ctx context.Context, limit int) (int, error) {
	return b.replay.ReplayFailedEvents(ctx, limit)
}

func (b *backend) Close() { b.close() }

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

	open := func(context.Context) (cli.Backend, error) {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		runner, err := digest.New(repository.NewStore(dbConn, loc), digest.MailSender{Mailer: mailer.New(cfg.SMTP, log)}, loc, log)
		if err != nil {
			dbConn.Close()
			return nil, err
		}
		return &backend{
			close:  dbConn.Close,
			runner: runner,
			replay: outbox.NewReplayService(outbox.NewRepository(dbConn)),
		}, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(open, loc).ExecuteContext(ctx); err != nil {
		stop()
		log.Sync()
		os.Exit(1)
	}
}
