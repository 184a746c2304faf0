package notification

import (
	"context"
	"errors"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/repository"
)

type Store interface {
	ListUnread(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	out, err := s.store.ListUnread(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list notifications", err)
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	err := s.store.MarkRead(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("notification")
	}
	if err != nil {
		return apperr.Store("mark notification read", err)
	}
	return nil
}
