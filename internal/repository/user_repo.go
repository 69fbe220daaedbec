package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nesto/internal/model"
)

const userColumns = `id, email, display_name, COALESCE(first_name, ''),
	email_digest_daily, email_digest_weekly, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.FirstName,
		&u.DigestDaily, &u.DigestWeekly, &u.CreatedAt)
	return u, err
}

// FindByID returns ErrNotFound if the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// ListDigestSubscribers returns users opted into the period's digest.
func (r *UserRepository) ListDigestSubscribers(ctx context.Context, period model.DigestPeriod) ([]model.User, error) {
	var column string
	switch period {
	case model.PeriodDaily:
		column = "email_digest_daily"
	case model.PeriodWeekly:
		column = "email_digest_weekly"
	default:
		return nil, fmt.Errorf("unknown digest period %q", period)
	}

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest subscribers: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
