// services/profile_service.go
package services

import (
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
)

type ProfileService struct {
	db persistence.Database
}

func NewProfileService(db persistence.Database) *ProfileService {
	return &ProfileService{db: db}
}

// GetProfileWithStats returns a user's profile together with its counters.
func (s *ProfileService) GetProfileWithStats(userID string) (map[string]interface{}, error) {
	profile, err := s.db.LoadProfile(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.db.GetProfileStats(userID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"profile": profile,
		"stats":   stats,
	}, nil
}

// FetchUserProfile loads a stored profile, or a fresh one when the user has
// never been seen.
func (s *ProfileService) FetchUserProfile(userID, displayName string) (*models.UserProfile, error) {
	profile, err := s.db.LoadProfile(userID)
	if err == persistence.ErrRecordNotFound {
		return &models.UserProfile{UserID: userID, DisplayName: displayName}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveUserProfile persists a profile.
func (s *ProfileService) SaveUserProfile(profile *models.UserProfile) error {
	return s.db.SaveProfile(profile)
}
