// services/profile_service_test.go
package services

import (
	"testing"

	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
)

func TestFetchUserProfileUnknownUser(t *testing.T) {
	ps := NewProfileService(persistence.NewMemory())

	profile, err := ps.FetchUserProfile("user-1", "Alice")
	if err != nil {
		t.Fatalf("FetchUserProfile: %v", err)
	}
	if profile.UserID != "user-1" || profile.DisplayName != "Alice" {
		t.Errorf("fresh profile = %+v", profile)
	}
	if profile.RacesTotal != 0 || profile.Wins != 0 {
		t.Errorf("fresh profile should have zero counters, got %+v", profile)
	}
}

func TestFetchUserProfileKnownUser(t *testing.T) {
	db := persistence.NewMemory()
	ps := NewProfileService(db)

	stored := &models.UserProfile{UserID: "user-1", DisplayName: "Alice", RacesTotal: 4, Wins: 2}
	if err := ps.SaveUserProfile(stored); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	profile, err := ps.FetchUserProfile("user-1", "ignored")
	if err != nil {
		t.Fatalf("FetchUserProfile: %v", err)
	}
	if profile.DisplayName != "Alice" {
		t.Errorf("expected stored display name, got %q", profile.DisplayName)
	}
	if profile.RacesTotal != 4 || profile.Wins != 2 {
		t.Errorf("expected stored counters, got %+v", profile)
	}
}

func TestSaveUserProfileRoundTrip(t *testing.T) {
	db := persistence.NewMemory()
	ps := NewProfileService(db)

	if err := ps.SaveUserProfile(&models.UserProfile{UserID: "user-1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}
	if err := ps.SaveUserProfile(&models.UserProfile{UserID: "user-1", DisplayName: "Alicia", Wins: 1}); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	profile, err := db.LoadProfile("user-1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.DisplayName != "Alicia" || profile.Wins != 1 {
		t.Errorf("expected updated profile, got %+v", profile)
	}
}

func TestGetProfileWithStats(t *testing.T) {
	db := persistence.NewMemory()
	ps := NewProfileService(db)

	if err := ps.SaveUserProfile(&models.UserProfile{UserID: "user-1", DisplayName: "Alice", RacesTotal: 3, Wins: 1}); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}

	result, err := ps.GetProfileWithStats("user-1")
	if err != nil {
		t.Fatalf("GetProfileWithStats: %v", err)
	}
	stats, ok := result["stats"].(models.ProfileStats)
	if !ok {
		t.Fatalf("stats missing from result: %+v", result)
	}
	if stats.RacesTotal != 3 || stats.Wins != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := ps.GetProfileWithStats("nobody"); err != persistence.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound for unknown user, got %v", err)
	}
}
