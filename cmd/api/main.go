package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nesto/config"
	"nesto/internal/api"
	"nesto/internal/event"
	"nesto/internal/repository"
	"nesto/internal/task"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/mq"
	"nesto/pkg/outbox"
)

const (
	testDigestPerHour = 6
	testDigestBurst   = 2
	membershipTTL     = time.Minute
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

	log.Info("Starting nesto api...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("timezone", loc.String()),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories / services
	outboxRepo := outbox.NewRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn, loc)
	eventRepo := repository.NewEventRepository(dbConn, loc)
	households := repository.NewHouseholdRepository(dbConn)

	taskService := task.NewService(dbConn, taskRepo, households, outboxRepo, log)
	eventService := event.NewService(dbConn, eventRepo, households, outboxRepo, log)

	router := api.NewRouter(api.RouterConfig{
		JWTIssuer:         cfg.JWT.Issuer,
		JWTSecret:         cfg.JWT.Secret,
		TestDigestPerHour: testDigestPerHour,
		TestDigestBurst:   testDigestBurst,
	}, api.Handlers{
		Tasks:   api.NewTaskHandler(taskService, loc, log),
		Events:  api.NewEventHandler(eventService, loc, log),
		Digest:  api.NewDigestHandler(publisher, log),
		Admin:   api.NewAdminHandler(outbox.NewReplayService(outboxRepo), log),
		Members: api.NewCachedMembership(households, 10000, membershipTTL),
		DB:      dbConn,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Outbox Dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	g.Go(func() error {
		dispatcher.Start(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("nesto api stopped with error", zap.Error(err))
		return
	}
	log.Info("nesto api shutdown complete")
}
