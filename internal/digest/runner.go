package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nesto/internal/model"
	"nesto/internal/repository"
	"nesto/pkg/logger"
	"nesto/pkg/mailer"
	"nesto/pkg/metrics"
)

// Sender delivers a rendered digest. Implementations own their own
// retries and timeouts.
type Sender interface {
	Send(ctx context.Context, to, subject string, doc Document) error
}

// MailSender adapts the SMTP mailer to Sender.
type MailSender struct {
	Mailer *mailer.Mailer
}

func (s MailSender) Send(ctx context.Context, to, subject string, doc Document) error {
	err := s.Mailer.Send(ctx, mailer.Message{
		To:      to,
		Subject: subject,
		Text:    doc.Text,
		HTML:    doc.HTML,
	})
	if errors.Is(err, mailer.ErrDisabled) {
		return ErrMailDisabled
	}
	return err
}

// RunStats summarises one digest batch.
type RunStats struct {
	Users  int
	Sent   int
	Failed int
}

type Runner struct {
	store    Store
	gatherer *Gatherer
	renderer *Renderer
	sender   Sender
	loc      *time.Location
	logger   *zap.Logger
}

func NewRunner(store Store, gatherer *Gatherer, renderer *Renderer, sender Sender, loc *time.Location, logger *zap.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		store:    store,
		gatherer: gatherer,
		renderer: renderer,
		sender:   sender,
		loc:      loc,
		logger:   logger,
	}
}

// New wires a Runner with its own gatherer and renderer.
func New(store Store, sender Sender, loc *time.Location, logger *zap.Logger) (*Runner, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return NewRunner(store, NewGatherer(store, loc, logger), renderer, sender, loc, logger), nil
}

// Run sends period's digest to every opted-in user. A failure for one user
// is logged and counted; only failing to list the users fails the batch.
func (r *Runner) Run(ctx context.Context, period model.DigestPeriod, now time.Time) (RunStats, error) {
	start := time.Now()
	defer func() { metrics.RecordDigestRun(string(period), time.Since(start)) }()

	log := logger.WithTrace(ctx, r.logger).With(zap.String("period", string(period)))
	now = now.In(r.loc)

	users, err := r.store.ListUsersOptedIntoDigest(ctx, period)
	if err != nil {
		return RunStats{}, fmt.Errorf("list %s digest users: %w", period, err)
	}

	stats := RunStats{Users: len(users)}
	for _, u := range users {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		doc, err := r.build(ctx, u, period, now)
		if err == nil {
			err = r.sender.Send(ctx, u.Email, doc.Subject, doc)
		}
		if err != nil {
			stats.Failed++
			metrics.RecordDigestSend(string(period), "failed")
			log.Error("send digest failed", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		stats.Sent++
		metrics.RecordDigestSend(string(period), "sent")
	}

	log.Info("digest batch finished",
		zap.Int("users", stats.Users),
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// SendTest sends period's digest to a single user right away, whether or
// not they opted in.
func (r *Runner) SendTest(ctx context.Context, userID string, period model.DigestPeriod, now time.Time) error {
	if !period.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	u, err := r.store.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("get user %s: %w", userID, err)
	}

	doc, err := r.build(ctx, u, period, now.In(r.loc))
	if err != nil {
		return err
	}
	doc.Subject = SubjectForTestSend(period)
	if err := r.sender.Send(ctx, u.Email, doc.Subject, doc); err != nil {
		metrics.RecordDigestSend(string(period), "failed")
		return fmt.Errorf("send test digest to %s: %w", userID, err)
	}
	metrics.RecordDigestSend(string(period), "sent")
	logger.WithTrace(ctx, r.logger).Info("test digest sent",
		zap.String("user_id", userID),
		zap.String("period", string(period)),
	)
	return nil
}

func (r *Runner) build(ctx context.Context, u model.User, period model.DigestPeriod, now time.Time) (Document, error) {
	digests, err := r.gatherer.Gather(ctx, u, period, now)
	if err != nil {
		return Document{}, err
	}
	return r.renderer.Render(u, digests, period, now)
}
