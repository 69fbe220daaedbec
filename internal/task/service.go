package task

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"
	"go.uber.org/zap"

	mqcontracts "nesto/contracts/mq"
	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/repository"
	"nesto/pkg/db"
	"nesto/pkg/logger"
	"nesto/pkg/outbox"
)

type memberChecker interface {
	IsMemberTx(ctx context.Context, q repository.Querier, householdID, userID string) (bool, error)
}

const aggregateType = "task"

type Service struct {
	db         *pgxpool.Pool
	repo       *repository.TaskRepository
	members    memberChecker
	outboxRepo *outbox.Repository
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(pool *pgxpool.Pool, repo *repository.TaskRepository, members memberChecker, outboxRepo *outbox.Repository, logger *zap.Logger) *Service {
	return &Service{
		db:         pool,
		repo:       repo,
		members:    members,
		outboxRepo: outboxRepo,
		now:        time.Now,
		logger:     logger,
	}
}

// Update applies p to the task under a row lock and records the matching
// task event in the outbox in the same transaction.
func (s *Service) Update(ctx context.Context, householdID, taskID string, p Patch) (model.Task, error) {
	var updated model.Task
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		before, err := s.repo.GetForUpdate(ctx, tx, householdID, taskID)
		if err != nil {
			return err
		}
		isMember := func(ctx context.Context, hid, uid string) (bool, error) {
			return s.members.IsMemberTx(ctx, tx, hid, uid)
		}
		if err := patch.CheckAssignee(ctx, p.AssignedTo, householdID, isMember); err != nil {
			return err
		}
		after, err := Apply(before, p, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, &after); err != nil {
			return err
		}

		routingKey, payload := outboxEvent(before, after, p.StatusChanged())
		msg := outbox.Message{AggregateType: aggregateType, AggregateID: after.ID, RoutingKey: routingKey, Payload: payload}
		if err := outbox.Enqueue(ctx, tx, s.outboxRepo, msg); err != nil {
			return fmt.Errorf("enqueue %s: %w", routingKey, err)
		}
		updated = after
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}

	logger.WithTrace(ctx, s.logger).Info("task updated",
		zap.String("task_id", updated.ID),
		zap.String("household_id", householdID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Complete is Update with only status=done.
func (s *Service) Complete(ctx context.Context, householdID, taskID string) (model.Task, error) {
	return s.Update(ctx, householdID, taskID, Patch{Status: mo.Some(model.TaskDone)})
}

// outboxEvent picks the event describing the change from before to after.
func outboxEvent(before, after model.Task, statusRequested bool) (string, any) {
	recurred := statusRequested &&
		before.Recurrence.IsRecurring() &&
		after.Status == model.TaskPending &&
		after.LastCompletedAt != nil &&
		!sameDate(before.DueDate, after.DueDate)

	switch {
	case recurred:
		return mqcontracts.RoutingTaskRecurred, mqcontracts.TaskRecurredPayload{
			TaskID:      after.ID,
			HouseholdID: after.HouseholdID,
			Title:       after.Title,
			PreviousDue: formatDate(before.DueDate),
			NextDue:     formatDate(after.DueDate),
			CompletedAt: *after.LastCompletedAt,
		}
	case after.Status == model.TaskDone && before.Status != model.TaskDone:
		p := mqcontracts.TaskCompletedPayload{
			TaskID:      after.ID,
			HouseholdID: after.HouseholdID,
			Title:       after.Title,
		}
		if after.AssignedTo != nil {
			p.AssignedTo = *after.AssignedTo
		}
		if after.CompletedAt != nil {
			p.CompletedAt = *after.CompletedAt
		}
		return mqcontracts.RoutingTaskCompleted, p
	default:
		return mqcontracts.RoutingTaskUpdated, mqcontracts.TaskUpdatedPayload{
			TaskID:      after.ID,
			HouseholdID: after.HouseholdID,
			Status:      string(after.Status),
			UpdatedAt:   after.UpdatedAt,
		}
	}
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}
