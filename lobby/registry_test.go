package lobby

import (
	"math/rand"
	"testing"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

func newTestRegistry() *Registry {
	return NewRegistry(rand.New(rand.NewSource(1)))
}

func mustCreate(t *testing.T, r *Registry) models.Lobby {
	t.Helper()
	l, err := r.Create("creator", 500, "10", models.PayoutWinnerTakesAll, 4, 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return l
}

func TestCreate_Validation(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.Create("u", 0, "0", "", 4, 2); err != models.ErrInvalidDistance {
		t.Errorf("zero distance: got %v, want ErrInvalidDistance", err)
	}
	if _, err := r.Create("u", 500, "0", "", 4, 1); err != models.ErrInvalidCapacity {
		t.Errorf("min below 2: got %v, want ErrInvalidCapacity", err)
	}
	if _, err := r.Create("u", 500, "0", "", 2, 3); err != models.ErrInvalidCapacity {
		t.Errorf("min above max: got %v, want ErrInvalidCapacity", err)
	}
	if _, err := r.Create("u", 500, "ten", "", 4, 2); err != models.ErrInvalidEntryFee {
		t.Errorf("non-numeric fee: got %v, want ErrInvalidEntryFee", err)
	}
	if _, err := r.Create("u", 500, "-1", "", 4, 2); err != models.ErrInvalidEntryFee {
		t.Errorf("negative fee: got %v, want ErrInvalidEntryFee", err)
	}

	l, err := r.Create("u", 500, "", "", 4, 2)
	if err != nil {
		t.Fatalf("Create with defaults failed: %v", err)
	}
	if l.EntryFee != "0" || l.PayoutMode != models.PayoutWinnerTakesAll {
		t.Errorf("defaults not applied: fee=%s payout=%s", l.EntryFee, l.PayoutMode)
	}
	if l.Status != models.LobbyWaiting || len(l.Participants) != 0 {
		t.Errorf("new lobby not empty and waiting: %+v", l)
	}
}

func TestJoin_IdempotentAndCapacity(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)

	for i, id := range []string{"a", "b", "c", "d"} {
		got, err := r.Join(l.ID, models.Participant{ID: id})
		if err != nil {
			t.Fatalf("join %d failed: %v", i, err)
		}
		if len(got.Participants) != i+1 {
			t.Fatalf("roster size = %d, want %d", len(got.Participants), i+1)
		}
	}

	// Re-joining an existing participant succeeds without growing the roster.
	got, err := r.Join(l.ID, models.Participant{ID: "a"})
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if len(got.Participants) != 4 {
		t.Errorf("rejoin grew roster to %d", len(got.Participants))
	}

	if _, err := r.Join(l.ID, models.Participant{ID: "e"}); err != models.ErrLobbyFull {
		t.Errorf("full lobby: got %v, want ErrLobbyFull", err)
	}
	if _, err := r.Join("missing", models.Participant{ID: "x"}); err != models.ErrLobbyNotFound {
		t.Errorf("unknown lobby: got %v, want ErrLobbyNotFound", err)
	}
}

func TestJoin_Defaults(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)

	got, err := r.Join(l.ID, models.Participant{ID: "a"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	p := got.Participants[0]
	if p.Status != models.ParticipantDeposited {
		t.Errorf("status = %s, want deposited", p.Status)
	}
	if p.EquipmentType != models.EquipmentRower {
		t.Errorf("equipment = %s, want rower", p.EquipmentType)
	}
}

func TestAddBot(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)

	got, bot, err := r.AddBot(l.ID, models.BotMedium)
	if err != nil {
		t.Fatalf("AddBot failed: %v", err)
	}
	if !bot.IsBot || bot.Status != models.ParticipantReady {
		t.Errorf("bot not ready on join: %+v", bot)
	}
	if bot.DisplayName == "" || bot.EquipmentType == "" {
		t.Errorf("bot identity not assigned: %+v", bot)
	}
	if len(got.Participants) != 1 {
		t.Errorf("roster size = %d", len(got.Participants))
	}

	if _, _, err := r.AddBot(l.ID, "impossible"); err != models.ErrInvalidDifficulty {
		t.Errorf("bad difficulty: got %v, want ErrInvalidDifficulty", err)
	}
}

func TestAddBot_SeededIdentityReproduces(t *testing.T) {
	run := func() (string, models.EquipmentType) {
		r := NewRegistry(rand.New(rand.NewSource(5)))
		l := mustCreate(t, r)
		_, bot, err := r.AddBot(l.ID, models.BotEasy)
		if err != nil {
			t.Fatalf("AddBot failed: %v", err)
		}
		return bot.DisplayName, bot.EquipmentType
	}

	n1, e1 := run()
	n2, e2 := run()
	if n1 != n2 || e1 != e2 {
		t.Errorf("seeded identity diverged: %s/%s vs %s/%s", n1, e1, n2, e2)
	}
}

func TestStartGate(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)

	if r.CanStart(l.ID) {
		t.Error("empty lobby reported startable")
	}

	r.Join(l.ID, models.Participant{ID: "a"})
	r.Join(l.ID, models.Participant{ID: "b"})
	if r.CanStart(l.ID) {
		t.Error("unready roster reported startable")
	}

	r.SetReady(l.ID, "a")
	if r.CanStart(l.ID) {
		t.Error("partially ready roster reported startable")
	}

	r.SetReady(l.ID, "b")
	if !r.CanStart(l.ID) {
		t.Error("ready roster not startable")
	}
}

func TestStartGate_BotsCountTowardMinimum(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)

	r.Join(l.ID, models.Participant{ID: "a"})
	r.AddBot(l.ID, models.BotHard)
	r.SetReady(l.ID, "a")

	if !r.CanStart(l.ID) {
		t.Error("human plus bot should satisfy the gate")
	}
}

func TestSetReady_UnknownParticipantIsNoop(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})

	got, err := r.SetReady(l.ID, "ghost")
	if err != nil {
		t.Fatalf("SetReady failed: %v", err)
	}
	if got.Participants[0].Status == models.ParticipantReady {
		t.Error("unrelated participant flipped to ready")
	}
}

func TestBeginRace_GateAndSingleStart(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})
	r.Join(l.ID, models.Participant{ID: "b"})
	r.SetReady(l.ID, "a")
	r.SetReady(l.ID, "b")

	got, err := r.BeginRace(l.ID, "race-1")
	if err != nil {
		t.Fatalf("BeginRace failed: %v", err)
	}
	if got.Status != models.LobbyStarting || got.RaceID != "race-1" {
		t.Errorf("lobby after BeginRace: %+v", got)
	}

	// Second start attempt must fail, the lobby left Waiting.
	if _, err := r.BeginRace(l.ID, "race-2"); err != models.ErrLobbyNotStartable {
		t.Errorf("double start: got %v, want ErrLobbyNotStartable", err)
	}
}

func TestRemove_WaitingFreesSlot(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})
	r.Join(l.ID, models.Participant{ID: "b"})

	got, err := r.Remove(l.ID, "a")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0].ID != "b" {
		t.Errorf("roster after remove: %+v", got.Participants)
	}
	if got.Status != models.LobbyWaiting {
		t.Errorf("status = %s, want waiting", got.Status)
	}
}

func TestRemove_LastParticipantCancelsLobby(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})

	got, _ := r.Remove(l.ID, "a")
	if got.Status != models.LobbyCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestRemove_AfterStartMarksDisconnected(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})
	r.Join(l.ID, models.Participant{ID: "b"})
	r.SetReady(l.ID, "a")
	r.SetReady(l.ID, "b")
	r.BeginRace(l.ID, "race-1")

	got, err := r.Remove(l.ID, "a")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("roster shrank after start: %d", len(got.Participants))
	}
	if got.Participants[0].Status != models.ParticipantDisconnected {
		t.Errorf("status = %s, want disconnected", got.Participants[0].Status)
	}
}

func TestListVisible(t *testing.T) {
	r := newTestRegistry()

	mine, _ := r.Create("alice", 500, "0", "", 4, 2)
	other, _ := r.Create("bob", 1000, "0", "", 4, 2)
	joined, _ := r.Create("carol", 2000, "0", "", 4, 2)
	r.Join(joined.ID, models.Participant{ID: "alice"})

	// A lobby that left Waiting disappears from every listing.
	hidden, _ := r.Create("alice", 500, "0", "", 4, 2)
	r.Join(hidden.ID, models.Participant{ID: "x"})
	r.Join(hidden.ID, models.Participant{ID: "y"})
	r.SetReady(hidden.ID, "x")
	r.SetReady(hidden.ID, "y")
	r.BeginRace(hidden.ID, "race-1")

	global := r.ListVisible("")
	if len(global) != 3 {
		t.Fatalf("global listing size = %d, want 3", len(global))
	}

	visible := r.ListVisible("alice")
	if len(visible) != 2 {
		t.Fatalf("alice listing size = %d, want 2", len(visible))
	}
	ids := map[string]bool{visible[0].ID: true, visible[1].ID: true}
	if !ids[mine.ID] || !ids[joined.ID] {
		t.Errorf("alice listing missing expected lobbies: %v", ids)
	}
	if ids[other.ID] {
		t.Error("alice listing leaked an unrelated lobby")
	}
}

func TestSweep(t *testing.T) {
	r := newTestRegistry()

	cancelled := mustCreate(t, r)
	r.Cancel(cancelled.ID)

	done := mustCreate(t, r)
	r.CompleteRace(done.ID, nil)

	waiting := mustCreate(t, r)

	// Zero retention sweeps every terminal lobby immediately.
	removed := r.Sweep(0)
	if len(removed) != 2 {
		t.Fatalf("removed %d lobbies, want 2", len(removed))
	}
	if _, ok := r.Get(cancelled.ID); ok {
		t.Error("cancelled lobby survived sweep")
	}
	if _, ok := r.Get(done.ID); ok {
		t.Error("completed lobby survived sweep")
	}
	if _, ok := r.Get(waiting.ID); !ok {
		t.Error("waiting lobby was swept")
	}
}

func TestSnapshotsAreDeepCopies(t *testing.T) {
	r := newTestRegistry()
	l := mustCreate(t, r)
	r.Join(l.ID, models.Participant{ID: "a"})

	snap, _ := r.Get(l.ID)
	snap.Participants[0].Status = models.ParticipantFinished

	again, _ := r.Get(l.ID)
	if again.Participants[0].Status == models.ParticipantFinished {
		t.Error("mutating a snapshot leaked into the registry")
	}
}
