// services/sync_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
)

func waitForStats(t *testing.T, db persistence.Database, userID string, want models.ProfileStats) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	var got models.ProfileStats
	for time.Now().Before(deadline) {
		stats, err := db.GetProfileStats(userID)
		if err == nil && stats == want {
			return
		}
		got = stats
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stats for %s = %+v, want %+v", userID, got, want)
}

func TestOnUserStatsShouldUpdate(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewSyncService(db)

	r := models.Race{
		ID: "race-1",
		Participants: []models.RaceParticipant{
			{ID: "alice", DisplayName: "Alice", IsFinished: true, Position: 1},
			{ID: "bob", DisplayName: "Bob", IsFinished: true, Position: 2},
			{ID: "bot-1", DisplayName: "Bot", IsBot: true, IsFinished: true, Position: 3},
		},
	}

	svc.OnUserStatsShouldUpdate(r)

	waitForStats(t, db, "alice", models.ProfileStats{RacesTotal: 1, Wins: 1})
	waitForStats(t, db, "bob", models.ProfileStats{RacesTotal: 1, Wins: 0})

	if _, err := db.GetProfileStats("bot-1"); err != persistence.ErrRecordNotFound {
		t.Errorf("bot should not get a stats row, got err=%v", err)
	}
}

func TestOnUserStatsShouldUpdateNoWinner(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewSyncService(db)

	// Aborted race: nobody finished, every human still gets a race counted.
	r := models.Race{
		ID: "race-1",
		Participants: []models.RaceParticipant{
			{ID: "alice", DisplayName: "Alice"},
			{ID: "bob", DisplayName: "Bob"},
		},
	}

	svc.OnUserStatsShouldUpdate(r)

	waitForStats(t, db, "alice", models.ProfileStats{RacesTotal: 1, Wins: 0})
	waitForStats(t, db, "bob", models.ProfileStats{RacesTotal: 1, Wins: 0})
}
