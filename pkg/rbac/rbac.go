package rbac

import (
	"fmt"
	"slices"
)

// 权限常量
const (
	PermissionReadHousehold = "household:read"
	PermissionUpdateTask    = "task:update"
	PermissionSendTestMail  = "digest:test"
	PermissionReplayOutbox  = "outbox:replay"
)

// 角色常量（来自 JWT 的 role claim）
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleMember: {
		PermissionReadHousehold,
		PermissionUpdateTask,
		PermissionSendTestMail,
	},
	RoleAdmin: {
		PermissionReadHousehold,
		PermissionUpdateTask,
		PermissionSendTestMail,
		PermissionReplayOutbox,
	},
}

// NormalizeRole 未知或空角色按 member 处理
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleMember
}

// HasPermission 检查角色是否拥有指定权限
func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[NormalizeRole(role)], permission)
}

// CheckPermission 与 HasPermission 相同，但返回错误便于处理
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{UserID: userID, Permission: permission}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("user %s lacks permission %s", e.UserID, e.Permission)
}
