package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleUser, PermissionReadDashboard))
	assert.False(t, HasPermission(RoleUser, PermissionConvertAnyReferral))
	assert.True(t, HasPermission(RoleService, PermissionConvertAnyReferral))
	assert.True(t, HasPermission(RoleService, PermissionTrackAnySignup))

	// 未知角色按普通用户处理
	assert.True(t, HasPermission("", PermissionSendReferral))
	assert.False(t, HasPermission("admin", PermissionTrackAnySignup))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission("u1", RoleService, PermissionTrackAnySignup))

	err := CheckPermission("u1", RoleUser, PermissionTrackAnySignup)
	var denied *PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, "u1", denied.UserID)
	assert.Equal(t, PermissionTrackAnySignup, denied.Permission)
}

func TestValidateUserIDInPayload(t *testing.T) {
	assert.NoError(t, ValidateUserIDInPayload("u1", "u1"))

	var mismatch *UserIDMismatchError
	assert.ErrorAs(t, ValidateUserIDInPayload("u1", "u2"), &mismatch)
}
