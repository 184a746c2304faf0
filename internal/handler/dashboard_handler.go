package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/service/dashboard"
)

type DashboardService interface {
	Get(ctx context.Context, userID string) (*dashboard.View, error)
}

type DashboardHandler struct {
	svc    DashboardService
	logger *zap.Logger
}

func NewDashboardHandler(svc DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// GetDashboard POST /functions/v1/dashboard-data
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "dashboard", err)
		return
	}

	view, err := h.svc.Get(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, h.logger, "dashboard", err)
		return
	}

	c.JSON(http.StatusOK, view)
}
