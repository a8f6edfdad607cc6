package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/fanout"
	"github.com/carebridge/carebridge/internal/identity"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// ProfileService manages elderly profiles. Creation derives the profile
// ID from the recipient's phone number, so creating the same recipient
// twice converges on one profile instead of duplicating it.
type ProfileService struct {
	store  store.Store
	fanout *fanout.Coordinator
	log    zerolog.Logger
}

func NewProfileService(s store.Store, fo *fanout.Coordinator, log zerolog.Logger) *ProfileService {
	return &ProfileService{store: s, fanout: fo, log: log}
}

// CreateProfile registers a care recipient in pendingConfirmation state.
// The profile stays pending until a positive SMS reply reconciles it.
func (s *ProfileService) CreateProfile(ctx context.Context, userID, name, phone, relationship string) (*model.Profile, error) {
	profileID, err := identity.ProfileID(phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Profiles().Get(ctx, userID, profileID)
	if err == nil {
		// Same phone again: upsert, keep confirmation state.
		existing.Name = name
		existing.Relationship = relationship
		out, err := s.store.Profiles().Upsert(ctx, existing)
		if err != nil {
			return nil, err
		}
		s.fanout.ProfileUpdated(out)
		return out, nil
	}

	out, err := s.store.Profiles().Upsert(ctx, &model.Profile{
		ProfileID:    profileID,
		UserID:       userID,
		Name:         name,
		PhoneNumber:  profileID,
		Relationship: relationship,
		Status:       model.ProfilePendingConfirmation,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().AdjustCounts(ctx, userID, 1, 0); err != nil {
		// Counters are best-effort denormalization; the profile itself
		// is already durable.
		s.log.Warn().Err(err).Str("user_id", userID).Msg("profile counter bump failed")
	}
	s.fanout.ProfileUpdated(out)
	s.log.Info().Str("profile_id", out.ProfileID).Str("user_id", userID).Msg("profile created, awaiting confirmation")
	return out, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID, profileID string) (*model.Profile, error) {
	return s.store.Profiles().Get(ctx, userID, profileID)
}

func (s *ProfileService) ListProfiles(ctx context.Context, userID string) ([]*model.Profile, error) {
	return s.store.Profiles().List(ctx, userID)
}

// DeleteProfile removes a profile with its tasks, messages and gallery
// events, and settles the denormalized counters.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID, profileID string) error {
	tasks, err := s.store.Tasks().ListByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if err := s.store.Profiles().Delete(ctx, userID, profileID); err != nil {
		return err
	}
	if err := s.store.Users().AdjustCounts(ctx, userID, -1, -len(tasks)); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("profile counter decrement failed")
	}
	return nil
}
