package coordinator

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/bot"
	"github.com/wmmnpr/pm5monitor-sub000/lobby"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/race"
)

type nopRaceCast struct{}

func (nopRaceCast) Countdown(string, int)     {}
func (nopRaceCast) RaceStarted(models.Race)   {}
func (nopRaceCast) RaceUpdate(models.Race)    {}
func (nopRaceCast) RaceCompleted(models.Race) {}

// recordingHooks counts hook invocations so tests can assert the persistence
// triggers fire.
type recordingHooks struct {
	mu             sync.Mutex
	lobbiesCreated int
	statusChanges  int
	completed      int
	racesCompleted int
	statsUpdates   int
}

func (h *recordingHooks) OnLobbyCreated(models.Lobby) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lobbiesCreated++
}

func (h *recordingHooks) OnLobbyStatusChanged(string, models.LobbyStatus, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusChanges++
}

func (h *recordingHooks) OnLobbyCompleted(models.Lobby) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed++
}

func (h *recordingHooks) OnRaceCompleted(models.Race) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.racesCompleted++
}

func (h *recordingHooks) OnUserStatsShouldUpdate(models.Race) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statsUpdates++
}

func newTestCoordinator(hooks Hooks) *Coordinator {
	cfg := race.Config{TickInterval: 50 * time.Millisecond, CountdownSeconds: 1}
	sim := bot.NewSimulator(rand.New(rand.NewSource(1)))
	registry := lobby.NewRegistry(rand.New(rand.NewSource(1)))
	return New(registry, nil, nopRaceCast{}, hooks, cfg, sim)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestCoordinator_FullRaceLifecycle(t *testing.T) {
	hooks := &recordingHooks{}
	c := newTestCoordinator(hooks)
	defer c.Shutdown()

	l, err := c.CreateLobby("", models.CreateLobbyRequest{
		CreatorID:          "alice",
		RaceDistanceMeters: 5,
		EntryFee:           "10",
		MaxParticipants:    4,
		MinParticipants:    2,
	})
	if err != nil {
		t.Fatalf("CreateLobby failed: %v", err)
	}

	if _, err := c.JoinLobby(l.ID, models.Participant{ID: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("JoinLobby failed: %v", err)
	}
	if _, _, err := c.AddBot(l.ID, models.BotElite); err != nil {
		t.Fatalf("AddBot failed: %v", err)
	}

	// Not startable until the human is ready.
	if _, err := c.StartRace(l.ID); err != models.ErrLobbyNotStartable {
		t.Fatalf("premature start: got %v, want ErrLobbyNotStartable", err)
	}

	if _, err := c.SetReady(l.ID, "alice"); err != nil {
		t.Fatalf("SetReady failed: %v", err)
	}

	r, err := c.StartRace(l.ID)
	if err != nil {
		t.Fatalf("StartRace failed: %v", err)
	}
	if r.Status != models.RacePending {
		t.Errorf("race status at spawn = %s, want pending", r.Status)
	}

	got, _ := c.GetLobby(l.ID)
	if got.Status != models.LobbyStarting || got.RaceID != r.ID {
		t.Errorf("lobby after start: status=%s raceID=%s", got.Status, got.RaceID)
	}

	// A second start loses the atomic gate.
	if _, err := c.StartRace(l.ID); err != models.ErrLobbyNotStartable {
		t.Errorf("double start: got %v, want ErrLobbyNotStartable", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		cur, _ := c.GetLobby(l.ID)
		return cur.Status == models.LobbyInProgress
	}, "lobby never flipped to in_progress")

	// Drive the human across the line; the elite bot finishes on its own.
	waitFor(t, 30*time.Second, func() bool {
		_, err := c.ReportMetrics(models.ReportMetricsRequest{
			RaceID:        r.ID,
			ParticipantID: "alice",
			Distance:      5,
			Pace:          120,
			Watts:         200,
		})
		if err != nil {
			return false
		}
		cur, _ := c.GetLobby(l.ID)
		return cur.Status == models.LobbyCompleted
	}, "lobby never completed")

	final, _ := c.GetLobby(l.ID)
	if len(final.RaceResults) != 2 {
		t.Fatalf("race results = %d entries, want 2", len(final.RaceResults))
	}
	if final.RaceResults[0].Position != 1 || final.RaceResults[1].Position != 2 {
		t.Errorf("results not ordered by position: %+v", final.RaceResults)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.lobbiesCreated != 1 {
		t.Errorf("OnLobbyCreated fired %d times", hooks.lobbiesCreated)
	}
	if hooks.completed != 1 || hooks.racesCompleted != 1 || hooks.statsUpdates != 1 {
		t.Errorf("completion hooks fired %d/%d/%d times, want 1/1/1",
			hooks.completed, hooks.racesCompleted, hooks.statsUpdates)
	}
}

func TestCoordinator_LeaveCancelsEmptyLobby(t *testing.T) {
	c := newTestCoordinator(nil)
	defer c.Shutdown()

	l, _ := c.CreateLobby("", models.CreateLobbyRequest{
		CreatorID:          "alice",
		RaceDistanceMeters: 500,
		MaxParticipants:    4,
		MinParticipants:    2,
	})
	c.JoinLobby(l.ID, models.Participant{ID: "alice"})

	got, err := c.LeaveLobby(l.ID, "alice")
	if err != nil {
		t.Fatalf("LeaveLobby failed: %v", err)
	}
	if got.Status != models.LobbyCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestCoordinator_LeaveDuringRaceStillCompletes(t *testing.T) {
	hooks := &recordingHooks{}
	c := newTestCoordinator(hooks)
	defer c.Shutdown()

	l, err := c.CreateLobby("", models.CreateLobbyRequest{
		CreatorID:          "alice",
		RaceDistanceMeters: 500,
		MaxParticipants:    4,
		MinParticipants:    2,
	})
	if err != nil {
		t.Fatalf("CreateLobby failed: %v", err)
	}
	c.JoinLobby(l.ID, models.Participant{ID: "alice", DisplayName: "Alice"})
	c.JoinLobby(l.ID, models.Participant{ID: "bob", DisplayName: "Bob"})
	c.SetReady(l.ID, "alice")
	c.SetReady(l.ID, "bob")

	r, err := c.StartRace(l.ID)
	if err != nil {
		t.Fatalf("StartRace failed: %v", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		cur, _ := c.GetLobby(l.ID)
		return cur.Status == models.LobbyInProgress
	}, "lobby never flipped to in_progress")

	// Bob walks away mid-race. Without a withdrawal the race would wait on
	// him forever.
	if _, err := c.LeaveLobby(l.ID, "bob"); err != nil {
		t.Fatalf("LeaveLobby failed: %v", err)
	}

	if _, err := c.ReportMetrics(models.ReportMetricsRequest{
		RaceID:        r.ID,
		ParticipantID: "alice",
		Distance:      500,
		Pace:          120,
		Watts:         200,
	}); err != nil {
		t.Fatalf("ReportMetrics failed: %v", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		cur, _ := c.GetLobby(l.ID)
		return cur.Status == models.LobbyCompleted
	}, "lobby never completed after a participant left mid-race")

	final, _ := c.GetLobby(l.ID)
	if len(final.RaceResults) != 1 {
		t.Fatalf("race results = %+v, want only the finisher", final.RaceResults)
	}
	if final.RaceResults[0].ParticipantID != "alice" || final.RaceResults[0].Position != 1 {
		t.Errorf("result = %+v", final.RaceResults[0])
	}
}

func TestCoordinator_Rejoin(t *testing.T) {
	c := newTestCoordinator(nil)
	defer c.Shutdown()

	l, _ := c.CreateLobby("", models.CreateLobbyRequest{
		CreatorID:          "alice",
		RaceDistanceMeters: 500,
		MaxParticipants:    4,
		MinParticipants:    2,
	})
	c.JoinLobby(l.ID, models.Participant{ID: "alice"})

	// Before a race exists, rejoin returns only the lobby.
	gotLobby, gotRace, err := c.Rejoin("", l.ID)
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if gotLobby.ID != l.ID || gotRace != nil {
		t.Errorf("rejoin before race: lobby=%s race=%v", gotLobby.ID, gotRace)
	}

	c.SetReady(l.ID, "alice")
	c.AddBot(l.ID, models.BotEasy)
	r, err := c.StartRace(l.ID)
	if err != nil {
		t.Fatalf("StartRace failed: %v", err)
	}

	_, gotRace, err = c.Rejoin("", l.ID)
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if gotRace == nil || gotRace.ID != r.ID {
		t.Errorf("rejoin did not return the live race")
	}

	if _, _, err := c.Rejoin("", "missing"); err != models.ErrLobbyNotFound {
		t.Errorf("unknown lobby: got %v, want ErrLobbyNotFound", err)
	}
}

func TestCoordinator_SweepRemovesTerminalLobbies(t *testing.T) {
	c := newTestCoordinator(nil)
	defer c.Shutdown()

	l, _ := c.CreateLobby("", models.CreateLobbyRequest{
		CreatorID:          "alice",
		RaceDistanceMeters: 500,
		MaxParticipants:    4,
		MinParticipants:    2,
	})
	c.JoinLobby(l.ID, models.Participant{ID: "alice"})
	c.LeaveLobby(l.ID, "alice")

	if n := c.Sweep(0); n != 1 {
		t.Errorf("swept %d lobbies, want 1", n)
	}
	if _, err := c.GetLobby(l.ID); err != models.ErrLobbyNotFound {
		t.Errorf("swept lobby still retrievable: %v", err)
	}
}
