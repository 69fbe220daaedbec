package patch

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"
)

var ErrAssigneeNotMember = errors.New("assigned user is not a member of this household")

// MemberFunc reports whether userID belongs to householdID.
type MemberFunc func(ctx context.Context, householdID, userID string) (bool, error)

// CheckAssignee rejects an assigned_to naming a user outside the household.
// Leaving the field out or clearing it always passes.
func CheckAssignee(ctx context.Context, assignee mo.Option[*string], householdID string, isMember MemberFunc) error {
	v, ok := assignee.Get()
	if !ok || v == nil {
		return nil
	}
	member, err := isMember(ctx, householdID, *v)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("assigned_to %s: %w", *v, ErrAssigneeNotMember)
	}
	return nil
}
