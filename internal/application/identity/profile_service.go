package identity

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// ProfileService loads user profiles for the bootstrap path
type ProfileService struct {
	profileRepo identity.ProfileRepository
	logger      *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo identity.ProfileRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// FetchProfile returns the profile of the given user
func (s *ProfileService) FetchProfile(ctx context.Context, userID string) (*identity.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			s.logger.Warn("Profile not found", zap.String("user_id", userID))
			return nil, err
		}
		s.logger.Error("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Profile loaded",
		zap.String("user_id", userID),
		zap.String("role", profile.Role))
	return profile, nil
}

var _ identity.ProfileService = (*ProfileService)(nil)
