package services

import (
	"context"

	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// UserService handles caregiver account operations. User IDs come from
// the auth provider and are accepted as-is.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService { return &UserService{store: s} }

func (s *UserService) UpsertUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.UserID == "" {
		return nil, model.ErrValidation
	}
	return s.store.Users().Upsert(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().Get(ctx, userID)
}
