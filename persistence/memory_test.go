package persistence

import (
	"testing"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

func TestMemory_ProfileRoundTrip(t *testing.T) {
	m := NewMemory()

	if _, err := m.LoadProfile("u1"); err != ErrRecordNotFound {
		t.Errorf("missing profile: got %v, want ErrRecordNotFound", err)
	}

	if err := m.SaveProfile(&models.UserProfile{UserID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	p, err := m.LoadProfile("u1")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.DisplayName != "Alice" {
		t.Errorf("display name = %s", p.DisplayName)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("timestamps not stamped")
	}
}

func TestMemory_RecordRaceOutcome(t *testing.T) {
	m := NewMemory()

	// First outcome creates the profile.
	if err := m.RecordRaceOutcome("u1", "Alice", true); err != nil {
		t.Fatalf("RecordRaceOutcome failed: %v", err)
	}
	if err := m.RecordRaceOutcome("u1", "Alice", false); err != nil {
		t.Fatalf("RecordRaceOutcome failed: %v", err)
	}

	stats, err := m.GetProfileStats("u1")
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}
	if stats.RacesTotal != 2 || stats.Wins != 1 {
		t.Errorf("stats = %+v, want 2 races 1 win", stats)
	}

	if _, err := m.GetProfileStats("ghost"); err != ErrRecordNotFound {
		t.Errorf("missing stats: got %v, want ErrRecordNotFound", err)
	}
}

func TestMemory_LobbyAndRaceRecords(t *testing.T) {
	m := NewMemory()

	l := models.Lobby{ID: "l1", Status: models.LobbyWaiting}
	if err := m.SaveLobbyRecord(l); err != nil {
		t.Fatalf("SaveLobbyRecord failed: %v", err)
	}
	if err := m.UpdateLobbyRecord("l1", models.LobbyCompleted, 3); err != nil {
		t.Fatalf("UpdateLobbyRecord failed: %v", err)
	}
	// Updating an unknown lobby is a silent no-op, matching the best-effort
	// contract of the hooks.
	if err := m.UpdateLobbyRecord("ghost", models.LobbyCompleted, 0); err != nil {
		t.Errorf("unknown lobby update errored: %v", err)
	}

	r := models.Race{ID: "r1", LobbyID: "l1"}
	results := []models.RaceResult{{Position: 1, ParticipantID: "u1"}}
	if err := m.SaveRaceRecord(r, results); err != nil {
		t.Fatalf("SaveRaceRecord failed: %v", err)
	}
}

func TestMemory_RaceRecordRoundTrip(t *testing.T) {
	m := NewMemory()

	if _, err := m.LoadRaceRecord("ghost"); err != ErrRecordNotFound {
		t.Errorf("missing record: got %v, want ErrRecordNotFound", err)
	}

	r := models.Race{ID: "r1", LobbyID: "l1", TargetDistanceMeters: 500}
	results := []models.RaceResult{
		{Position: 1, ParticipantID: "u1", FinishTimeMs: 90000},
		{Position: 2, ParticipantID: "u2", FinishTimeMs: 95000},
	}
	if err := m.SaveRaceRecord(r, results); err != nil {
		t.Fatalf("SaveRaceRecord failed: %v", err)
	}

	rec, err := m.LoadRaceRecord("r1")
	if err != nil {
		t.Fatalf("LoadRaceRecord failed: %v", err)
	}
	if rec.RaceID != "r1" || rec.LobbyID != "l1" || rec.DistanceMeters != 500 {
		t.Errorf("record = %+v", rec)
	}
	// Duration is the last finisher's time.
	if rec.DurationMs != 95000 {
		t.Errorf("duration = %d, want 95000", rec.DurationMs)
	}
	if len(rec.Results) != 2 || rec.Results[0].ParticipantID != "u1" {
		t.Errorf("results = %+v", rec.Results)
	}
}
