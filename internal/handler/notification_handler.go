package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/model"
)

type NotificationService interface {
	ListUnread(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type NotificationHandler struct {
	svc    NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// ListUnread GET /api/notifications
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "list_notifications", err)
		return
	}

	items, err := h.svc.ListUnread(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, "list_notifications", err)
		return
	}
	if items == nil {
		items = []model.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// MarkRead POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "mark_notification_read", err)
		return
	}
	noteID, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, h.logger, "mark_notification_read", err)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id.UserID, noteID); err != nil {
		writeError(c, h.logger, "mark_notification_read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
