package digest

import (
	"context"
	"time"

	"nesto/internal/model"
	"nesto/internal/repository"
)

// Store is the read side the digest needs. *repository.Store satisfies it.
type Store interface {
	ListHouseholdsForUser(ctx context.Context, userID string) ([]model.Household, error)
	ListEventDefinitions(ctx context.Context, householdID string, from, to time.Time) ([]model.Event, error)
	ListTasks(ctx context.Context, householdID string, f repository.TaskFilter) ([]model.Task, error)
	ListUsersOptedIntoDigest(ctx context.Context, period model.DigestPeriod) ([]model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}

var _ Store = (*repository.Store)(nil)
