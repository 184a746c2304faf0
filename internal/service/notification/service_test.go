package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractorvet/internal/apperr"
	"contractorvet/internal/model"
	"contractorvet/internal/repository"
)

type fakeStore struct {
	unread map[string]bool
	err    error
}

func (f *fakeStore) ListUnread(_ context.Context, userID string) ([]model.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Notification
	for id, unread := range f.unread {
		if unread {
			out = append(out, model.Notification{ID: id, UserID: userID})
		}
	}
	return out, nil
}

func (f *fakeStore) MarkRead(_ context.Context, _ string, id string) error {
	if _, ok := f.unread[id]; !ok {
		return fmt.Errorf("mark notification read: %w", repository.ErrNotFound)
	}
	f.unread[id] = false
	return nil
}

func TestMarkRead(t *testing.T) {
	store := &fakeStore{unread: map[string]bool{"n1": true, "n2": true}}
	s := NewService(store)
	ctx := context.Background()

	require.NoError(t, s.MarkRead(ctx, "u1", "n1"))
	list, err := s.ListUnread(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n2", list[0].ID)

	err = s.MarkRead(ctx, "u1", "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListUnread_StoreError(t *testing.T) {
	s := NewService(&fakeStore{err: errors.New("down")})
	_, err := s.ListUnread(context.Background(), "u1")
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
}
