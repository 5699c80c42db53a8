// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// Database mirrors lobby/race records and user profiles into a durable
// store. The core never depends on it succeeding: every call sits behind an
// asynchronous best-effort hook, and the in-memory implementation is a full
// replacement.
type Database interface {
	SaveProfile(p *models.UserProfile) error
	LoadProfile(userID string) (*models.UserProfile, error)
	SaveLobbyRecord(l models.Lobby) error
	UpdateLobbyRecord(lobbyID string, status models.LobbyStatus, participantCount int) error
	SaveRaceRecord(r models.Race, results []models.RaceResult) error
	LoadRaceRecord(raceID string) (*models.RaceRecord, error)
	RecordRaceOutcome(userID, displayName string, won bool) error
	GetProfileStats(userID string) (models.ProfileStats, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
