package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/pkg/auth"
	"contractorvet/pkg/logger"
)

// 由 AuthMiddleware 写入 gin.Context
const (
	CtxUserID   = "user_id"
	CtxIdentity = "identity"
)

func identity(c *gin.Context) (auth.Identity, error) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return auth.Identity{}, apperr.Unauthorized("user not authenticated")
	}
	id, ok := v.(auth.Identity)
	if !ok || id.UserID == "" {
		return auth.Identity{}, apperr.Unauthorized("user not authenticated")
	}
	return id, nil
}

// writeError 输出 {"error","kind"}；5xx 记 Error，其余记 Warn
func writeError(c *gin.Context, l *zap.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)

	log := logger.WithTrace(c.Request.Context(), l)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", string(kind)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= 500 {
		log.Error("Request failed", fields...)
	} else {
		log.Warn("Request rejected", fields...)
	}

	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func bindError(err error) error {
	return apperr.Validation("invalid request body: " + err.Error())
}

// uuidParam 路径参数必须是 UUID，否则按 400 处理
func uuidParam(c *gin.Context, name string) (string, error) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		return "", apperr.Validation(name + " must be a UUID")
	}
	return v, nil
}
