package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/handler"
	"contractorvet/pkg/auth"
	"contractorvet/pkg/logger"
	"contractorvet/pkg/metrics"
	"contractorvet/pkg/rbac"
	"contractorvet/pkg/trace"
)

const (
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "POST, GET, PATCH, DELETE, OPTIONS"
)

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Error(), "kind": apperr.KindOf(err)})
}

// AuthMiddleware 校验 bearer token，把 user_id 和 identity 放进 context
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.GetHeader("Authorization"))
		if token == "" {
			abortWithError(c, apperr.Unauthorized("missing token"))
			return
		}

		id, err := auth.ParseJWT(token, jwtSecret)
		if err != nil {
			abortWithError(c, apperr.Unauthorized("invalid token"))
			return
		}
		id.Role = rbac.NormalizeRole(id.Role)

		c.Set(handler.CtxUserID, id.UserID)
		c.Set(handler.CtxIdentity, id)

		c.Next()
	}
}

// RequirePermission 中间件：要求用户具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(handler.CtxIdentity)
		if !exists {
			abortWithError(c, apperr.Unauthorized("user not authenticated"))
			return
		}

		id, ok := v.(auth.Identity)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invalid identity"})
			return
		}

		if err := rbac.CheckPermission(id.UserID, id.Role, permission); err != nil {
			abortWithError(c, err)
			return
		}

		c.Next()
	}
}

// CORSMiddleware 所有响应都带 CORS 头；预检请求直接 204
func CORSMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// TraceMiddleware 读取或生成 X-Trace-ID，写回响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeaders(c.GetHeader)
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 请求日志 + 延迟指标
func RequestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.WithTrace(c.Request.Context(), l).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}
