package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"nesto/internal/model"
)

type HouseholdRepository struct {
	db *pgxpool.Pool
}

func NewHouseholdRepository(db *pgxpool.Pool) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

// ListForUser returns the households the user is a member of, by name.
func (r *HouseholdRepository) ListForUser(ctx context.Context, userID string) ([]model.Household, error) {
	query := `
		SELECT h.id, h.name, h.created_by, h.created_at
		FROM households h
		JOIN household_members m ON m.household_id = h.id
		WHERE m.user_id = $1
		ORDER BY h.name ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query households: %w", err)
	}
	defer rows.Close()

	var out []model.Household
	for rows.Next() {
		var h model.Household
		if err := rows.Scan(&h.ID, &h.Name, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// IsMember reports whether userID belongs to householdID.
func (r *HouseholdRepository) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	return r.IsMemberTx(ctx, r.db, householdID, userID)
}

// IsMemberTx is IsMember run on q, typically the caller's transaction.
func (r *HouseholdRepository) IsMemberTx(ctx context.Context, q Querier, householdID, userID string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM household_members WHERE household_id = $1 AND user_id = $2
		)`, householdID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}
