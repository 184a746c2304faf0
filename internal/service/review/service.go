package review

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/service/activity"
	"contractorvet/pkg/logger"
)

type Store interface {
	Insert(ctx context.Context, r *model.Review) error
}

type ActivityTracker interface {
	Track(ctx context.Context, in activity.Input) (*model.Activity, error)
}

type CreateInput struct {
	ContractorName string `json:"contractor_name" validate:"required,max=200"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Title          string `json:"title" validate:"max=200"`
	Body           string `json:"body" validate:"max=5000"`
}

type Service struct {
	store    Store
	tracker  ActivityTracker
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(store Store, tracker ActivityTracker, logger *zap.Logger) *Service {
	return &Service{store: store, tracker: tracker, validate: validator.New(), logger: logger}
}

// Create 写入评价并记录 review_created
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Review, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	r := &model.Review{
		UserID:         userID,
		ContractorName: in.ContractorName,
		Rating:         in.Rating,
		Title:          in.Title,
		Body:           in.Body,
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, apperr.Store("create review", err)
	}

	if _, err := s.tracker.Track(ctx, activity.Input{
		UserID:       userID,
		Action:       model.ActionReviewCreated,
		ResourceType: "review",
		ResourceID:   r.ID,
	}); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to track review_created", zap.Error(err))
	}
	return r, nil
}
