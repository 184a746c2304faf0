package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/model"
	"contractorvet/internal/service/activity"
)

type ActivityService interface {
	Track(ctx context.Context, in activity.Input) (*model.Activity, error)
}

type ActivityHandler struct {
	svc    ActivityService
	logger *zap.Logger
}

func NewActivityHandler(svc ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

type trackActivityRequest struct {
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// TrackActivity POST /functions/v1/track-activity
func (h *ActivityHandler) TrackActivity(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "track_activity", err)
		return
	}

	var req trackActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "track_activity", bindError(err))
		return
	}

	_, err = h.svc.Track(c.Request.Context(), activity.Input{
		UserID:       id.UserID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Metadata:     req.Metadata,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, h.logger, "track_activity", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
