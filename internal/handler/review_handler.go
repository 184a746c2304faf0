package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/model"
	"contractorvet/internal/service/review"
)

type ReviewService interface {
	Create(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error)
}

type ReviewHandler struct {
	svc    ReviewService
	logger *zap.Logger
}

func NewReviewHandler(svc ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, logger: logger}
}

// CreateReview POST /api/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "create_review", err)
		return
	}

	var req review.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "create_review", bindError(err))
		return
	}

	r, err := h.svc.Create(c.Request.Context(), id.UserID, req)
	if err != nil {
		writeError(c, h.logger, "create_review", err)
		return
	}

	c.JSON(http.StatusCreated, r)
}
