package rbac

// 权限常量
const (
	PermissionReadDashboard = "dashboard:read"
	PermissionTrackActivity = "activity:track"
	PermissionWriteProject  = "project:write"
	PermissionWriteReview   = "review:write"
	PermissionSendReferral  = "referral:send"

	// 敏感操作：代表任意用户推进推荐状态
	PermissionTrackAnySignup     = "referral:track_any_signup"
	PermissionConvertAnyReferral = "referral:convert_any"
)

// 角色常量；与 JWT role claim 的取值一致
const (
	RoleUser    = "authenticated"
	RoleService = "service_role"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadDashboard,
		PermissionTrackActivity,
		PermissionWriteProject,
		PermissionWriteReview,
		PermissionSendReferral,
	},
	RoleService: {
		PermissionTrackAnySignup,
		PermissionConvertAnyReferral,
	},
}

// NormalizeRole 把空或未知的 role 归为普通用户
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleUser
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[NormalizeRole(role)]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}

// ValidateUserIDInPayload 验证 payload 中的 user id 是否与 token 中的一致
func ValidateUserIDInPayload(tokenUserID, payloadUserID string) error {
	if payloadUserID != tokenUserID {
		return &UserIDMismatchError{
			TokenUserID:   tokenUserID,
			PayloadUserID: payloadUserID,
		}
	}
	return nil
}

// UserIDMismatchError 表示 user id 不匹配的错误
type UserIDMismatchError struct {
	TokenUserID   string
	PayloadUserID string
}

func (e *UserIDMismatchError) Error() string {
	return "user id in payload does not match token"
}
