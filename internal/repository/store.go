package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nesto/internal/model"
)

// Store bundles the read paths used by the digest.
type Store struct {
	Households *HouseholdRepository
	Users      *UserRepository
	Tasks      *TaskRepository
	Events     *EventRepository
}

func NewStore(db *pgxpool.Pool, loc *time.Location) *Store {
	return &Store{
		Households: NewHouseholdRepository(db),
		Users:      NewUserRepository(db),
		Tasks:      NewTaskRepository(db, loc),
		Events:     NewEventRepository(db, loc),
	}
}

func (s *Store) ListHouseholdsForUser(ctx context.Context, userID string) ([]model.Household, error) {
	return s.Households.ListForUser(ctx, userID)
}

func (s *Store) ListEventDefinitions(ctx context.Context, householdID string, from, to time.Time) ([]model.Event, error) {
	return s.Events.ListDefinitions(ctx, householdID, from, to)
}

func (s *Store) ListTasks(ctx context.Context, householdID string, f TaskFilter) ([]model.Task, error) {
	return s.Tasks.List(ctx, householdID, f)
}

func (s *Store) ListUsersOptedIntoDigest(ctx context.Context, period model.DigestPeriod) ([]model.User, error) {
	return s.Users.ListDigestSubscribers(ctx, period)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.Users.FindByID(ctx, id)
}
