package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nesto/config"
	mqcontracts "nesto/contracts/mq"
	"nesto/internal/digest"
	"nesto/internal/mqhandler"
	"nesto/internal/repository"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/mailer"
	"nesto/pkg/mq"
	redisclient "nesto/pkg/redis"
	"nesto/pkg/util"
)

const digestTestQueue = "digest.test_requested.q"

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

	log.Info("Starting nesto worker...")

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	runner, err := digest.New(repository.NewStore(dbConn, loc), digest.MailSender{Mailer: mailer.New(cfg.SMTP, log)}, loc, log)
	if err != nil {
		log.Fatal("Failed to init digest runner", zap.Error(err))
	}

	handler := mqhandler.NewDigestTestHandler(
		runner,
		util.NewDeduper(rdb, 24*time.Hour, log),
		util.NewRetryCounter(rdb, time.Hour),
		publisher,
		log,
	)

	binding := mq.Binding{Queue: digestTestQueue, RoutingKey: mqcontracts.RoutingDigestTestRequested}
	log.Info("Initializing digest test consumer", zap.String("queue", binding.Queue))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, binding, log)
	if err != nil {
		log.Fatal("Failed to init digest test consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(handler.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.StartConsuming(gctx)
	})

	log.Info("nesto worker is ready to process messages")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker stopped with error", zap.Error(err))
	}
	log.Info("nesto worker shutdown complete")
}
