package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleMember, PermissionUpdateTask))
	assert.False(t, HasPermission(RoleMember, PermissionReplayOutbox))
	assert.True(t, HasPermission(RoleAdmin, PermissionReplayOutbox))
	assert.True(t, HasPermission("", PermissionSendTestMail))
	assert.False(t, HasPermission("root", PermissionReplayOutbox))
}

func TestCheckPermission(t *testing.T) {
	err := CheckPermission("u1", RoleMember, PermissionReplayOutbox)

	var denied *PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, "u1", denied.UserID)
	assert.NoError(t, CheckPermission("u1", RoleAdmin, PermissionReplayOutbox))
}
