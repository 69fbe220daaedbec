package event

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "nesto/contracts/mq"
	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
	"nesto/internal/repository"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/metrics"
	"nesto/pkg/outbox"
)

type definitionLister interface {
	ListDefinitions(ctx context.Context, householdID string, from, to time.Time) ([]model.Event, error)
}

type memberChecker interface {
	IsMemberTx(ctx context.Context, q repository.Querier, householdID, userID string) (bool, error)
}

type Service struct {
	db         *pgxpool.Pool
	repo       *repository.EventRepository
	defs       definitionLister
	members    memberChecker
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewService(pool *pgxpool.Pool, repo *repository.EventRepository, members memberChecker, outboxRepo *outbox.Repository, logger *zap.Logger) *Service {
	return &Service{
		db:         pool,
		repo:       repo,
		defs:       repo,
		members:    members,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Occurrences lists the household's event occurrences between the start
// of from's day and the end of to's day.
func (s *Service) Occurrences(ctx context.Context, householdID string, from, to time.Time) ([]Occurrence, error) {
	start := recurrence.StartOfDay(from)
	end := recurrence.EndOfDay(to)
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}

	events, err := s.defs.ListDefinitions(ctx, householdID, start, end)
	if err != nil {
		return nil, err
	}
	occ, truncated := Expand(events, start, end)
	if len(truncated) > 0 {
		logger.WithTrace(ctx, s.logger).Warn("recurrence expansion truncated",
			zap.String("household_id", householdID),
			zap.Strings("event_ids", truncated),
		)
		metrics.IncrementRecurrenceTruncated("api", len(truncated))
	}
	return occ, nil
}

// Update applies p under a row lock and records event.updated in the outbox.
func (s *Service) Update(ctx context.Context, householdID, eventID string, p Patch) (model.Event, error) {
	var updated model.Event
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, householdID, eventID)
		if err != nil {
			return err
		}
		isMember := func(ctx context.Context, hid, uid string) (bool, error) {
			return s.members.IsMemberTx(ctx, tx, hid, uid)
		}
		if err := patch.CheckAssignee(ctx, p.AssignedTo, householdID, isMember); err != nil {
			return err
		}
		next, err := Apply(current, p)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		payload := mqcontracts.EventUpdatedPayload{
			EventID:     next.ID,
			HouseholdID: next.HouseholdID,
			StartTime:   next.StartTime,
			EndTime:     next.EndTime,
			Recurrence:  next.Recurrence.Kind.String(),
			UpdatedAt:   next.UpdatedAt,
		}
		msg := outbox.Message{
			AggregateType: "event",
			AggregateID:   next.ID,
			RoutingKey:    mqcontracts.RoutingEventUpdated,
			Payload:       payload,
		}
		if err := outbox.Enqueue(ctx, tx, s.outboxRepo, msg); err != nil {
			return fmt.Errorf("enqueue event.updated: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	logger.WithTrace(ctx, s.logger).Info("event updated",
		zap.String("event_id", updated.ID),
		zap.String("household_id", householdID),
	)
	return updated, nil
}
