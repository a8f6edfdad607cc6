package services

import (
	"context"

	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// HistoryService reads the derived display records: the message audit
// trail and the gallery feed. Both are write-once elsewhere; this
// service only lists.
type HistoryService struct {
	store store.Store
}

func NewHistoryService(s store.Store) *HistoryService { return &HistoryService{store: s} }

func (s *HistoryService) ListMessages(ctx context.Context, userID, profileID string, limit int) ([]*model.Message, error) {
	return s.store.Messages().ListByProfile(ctx, userID, profileID, limit)
}

func (s *HistoryService) ListGalleryEvents(ctx context.Context, userID string, limit int) ([]*model.GalleryEvent, error) {
	return s.store.GalleryEvents().List(ctx, userID, limit)
}
