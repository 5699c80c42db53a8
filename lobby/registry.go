// lobby/registry.go
package lobby

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wmmnpr/pm5monitor-sub000/bot"
	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// botNames is the pool bot display names are drawn from.
var botNames = []string{
	"Eddy", "Wake", "Scull", "Keel", "Drift",
	"Rapids", "Current", "Bowside", "Stroke", "Coxless",
}

// Registry owns every lobby and serializes all mutations to them. It is the
// constructor-injected replacement for global server state, so each test can
// run against a fresh instance.
type Registry struct {
	lobbies map[string]*models.Lobby
	mutex   sync.RWMutex
	rng     *rand.Rand
}

// NewRegistry creates a registry. The random source feeds bot identity
// (name and equipment type); pass a seeded source for reproducible fixtures.
func NewRegistry(rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		lobbies: make(map[string]*models.Lobby),
		rng:     rng,
	}
}

// Create opens a new lobby in Waiting status with an empty roster.
func (r *Registry) Create(creatorID string, distanceMeters int, entryFee string, payout models.PayoutMode, maxParticipants, minParticipants int) (models.Lobby, error) {
	if distanceMeters <= 0 {
		return models.Lobby{}, models.ErrInvalidDistance
	}
	if minParticipants < 2 || minParticipants > maxParticipants {
		return models.Lobby{}, models.ErrInvalidCapacity
	}
	if entryFee == "" {
		entryFee = "0"
	}
	if fee, err := strconv.ParseFloat(entryFee, 64); err != nil || fee < 0 {
		return models.Lobby{}, models.ErrInvalidEntryFee
	}
	if payout == "" {
		payout = models.PayoutWinnerTakesAll
	}

	l := &models.Lobby{
		ID:                 uuid.New().String(),
		CreatorID:          creatorID,
		RaceDistanceMeters: distanceMeters,
		EntryFee:           entryFee,
		PayoutMode:         payout,
		Status:             models.LobbyWaiting,
		MaxParticipants:    maxParticipants,
		MinParticipants:    minParticipants,
		CreatedAt:          time.Now(),
		Participants:       []models.Participant{},
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.lobbies[l.ID] = l
	return clone(l), nil
}

// Join adds a participant to a Waiting lobby. Re-adding the same participant
// id returns the lobby unchanged, which lets a dropped client reconnect
// without tripping the capacity check.
func (r *Registry) Join(lobbyID string, p models.Participant) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	if idx := l.FindParticipant(p.ID); idx >= 0 {
		return clone(l), nil
	}
	if l.Status != models.LobbyWaiting {
		return models.Lobby{}, models.ErrLobbyNotJoinable
	}
	if len(l.Participants) >= l.MaxParticipants {
		return models.Lobby{}, models.ErrLobbyFull
	}

	if p.Status == "" {
		p.Status = models.ParticipantDeposited
	}
	if p.EquipmentType == "" {
		p.EquipmentType = models.EquipmentRower
	}
	p.JoinedAt = time.Now()
	l.Participants = append(l.Participants, p)
	return clone(l), nil
}

// AddBot adds a simulated participant with a synthetic identity. Bots are
// Ready the moment they join.
func (r *Registry) AddBot(lobbyID string, difficulty models.BotDifficulty) (models.Lobby, models.Participant, error) {
	if _, ok := bot.ProfileFor(difficulty); !ok {
		return models.Lobby{}, models.Participant{}, models.ErrInvalidDifficulty
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.Participant{}, models.ErrLobbyNotFound
	}
	if l.Status != models.LobbyWaiting {
		return models.Lobby{}, models.Participant{}, models.ErrLobbyNotJoinable
	}
	if len(l.Participants) >= l.MaxParticipants {
		return models.Lobby{}, models.Participant{}, models.ErrLobbyFull
	}

	p := models.Participant{
		ID:            "bot-" + uuid.New().String(),
		DisplayName:   botNames[r.rng.Intn(len(botNames))],
		EquipmentType: models.EquipmentTypes[r.rng.Intn(len(models.EquipmentTypes))],
		Status:        models.ParticipantReady,
		IsBot:         true,
		BotDifficulty: difficulty,
		JoinedAt:      time.Now(),
	}
	l.Participants = append(l.Participants, p)
	return clone(l), p, nil
}

// SetReady flips a participant to Ready. Idempotent; an unknown participant
// id is a no-op rather than an error.
func (r *Registry) SetReady(lobbyID, participantID string) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	if idx := l.FindParticipant(participantID); idx >= 0 {
		l.Participants[idx].Status = models.ParticipantReady
	}
	return clone(l), nil
}

// Remove takes a participant off the roster. While the lobby is Waiting the
// slot is freed; once a race has been spawned the roster entry is only marked
// Disconnected so the race snapshot stays intact. A Waiting lobby whose
// roster empties is Cancelled. Unknown participant ids are a no-op.
func (r *Registry) Remove(lobbyID, participantID string) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	idx := l.FindParticipant(participantID)
	if idx < 0 {
		return clone(l), nil
	}

	if l.Status == models.LobbyWaiting {
		l.Participants = append(l.Participants[:idx], l.Participants[idx+1:]...)
		if len(l.Participants) == 0 {
			l.Status = models.LobbyCancelled
		}
	} else {
		l.Participants[idx].Status = models.ParticipantDisconnected
	}
	return clone(l), nil
}

// CanStart reports whether the lobby satisfies the start gate: Waiting
// status, at least the minimum roster, and every human participant Ready.
func (r *Registry) CanStart(lobbyID string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return false
	}
	return canStart(l)
}

func canStart(l *models.Lobby) bool {
	if l.Status != models.LobbyWaiting {
		return false
	}
	if len(l.Participants) < l.MinParticipants {
		return false
	}
	for i := range l.Participants {
		p := &l.Participants[i]
		if !p.IsBot && p.Status != models.ParticipantReady {
			return false
		}
	}
	return true
}

// BeginRace flips a startable lobby to Starting and pins the race id. It
// returns the roster snapshot the race is built from.
func (r *Registry) BeginRace(lobbyID, raceID string) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	if !canStart(l) {
		return models.Lobby{}, models.ErrLobbyNotStartable
	}

	l.Status = models.LobbyStarting
	l.RaceID = raceID
	return clone(l), nil
}

// MarkRacing flips a Starting lobby to InProgress once the countdown hits
// zero, and marks every roster entry Racing.
func (r *Registry) MarkRacing(lobbyID string) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	l.Status = models.LobbyInProgress
	for i := range l.Participants {
		if l.Participants[i].Status != models.ParticipantDisconnected {
			l.Participants[i].Status = models.ParticipantRacing
		}
	}
	return clone(l), nil
}

// CompleteRace stamps the final results onto the lobby. From here the lobby
// is immutable except for reads.
func (r *Registry) CompleteRace(lobbyID string, results []models.RaceResult) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	l.Status = models.LobbyCompleted
	l.RaceResults = append([]models.RaceResult(nil), results...)
	for i := range l.Participants {
		if l.Participants[i].Status != models.ParticipantDisconnected {
			l.Participants[i].Status = models.ParticipantFinished
		}
	}
	return clone(l), nil
}

// Cancel marks a lobby Cancelled unless it already completed.
func (r *Registry) Cancel(lobbyID string) (models.Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	if l.Status != models.LobbyCompleted {
		l.Status = models.LobbyCancelled
	}
	return clone(l), nil
}

// Get returns a snapshot of one lobby.
func (r *Registry) Get(lobbyID string) (models.Lobby, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	l, exists := r.lobbies[lobbyID]
	if !exists {
		return models.Lobby{}, false
	}
	return clone(l), true
}

// ListVisible returns the Waiting and Completed lobbies visible to a user:
// those they created or joined. An empty user id selects the unfiltered
// global listing variant.
func (r *Registry) ListVisible(userID string) []models.Lobby {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	visible := make([]models.Lobby, 0)
	for _, l := range r.lobbies {
		if l.Status != models.LobbyWaiting && l.Status != models.LobbyCompleted {
			continue
		}
		if userID != "" && l.CreatorID != userID && l.FindParticipant(userID) < 0 {
			continue
		}
		visible = append(visible, clone(l))
	}
	sortByCreatedAt(visible)
	return visible
}

// CountActive returns how many lobbies are not yet terminal.
func (r *Registry) CountActive() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	count := 0
	for _, l := range r.lobbies {
		if l.Status != models.LobbyCompleted && l.Status != models.LobbyCancelled {
			count++
		}
	}
	return count
}

// Sweep drops Cancelled lobbies and Completed lobbies older than the
// retention window. It returns snapshots of the removed lobbies.
func (r *Registry) Sweep(retention time.Duration) []models.Lobby {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cutoff := time.Now().Add(-retention)
	removed := make([]models.Lobby, 0)
	for id, l := range r.lobbies {
		if l.Status == models.LobbyCancelled ||
			(l.Status == models.LobbyCompleted && l.CreatedAt.Before(cutoff)) {
			delete(r.lobbies, id)
			removed = append(removed, clone(l))
		}
	}
	return removed
}

// clone returns a deep copy so callers never share slices with the registry.
func clone(l *models.Lobby) models.Lobby {
	out := *l
	out.Participants = append([]models.Participant(nil), l.Participants...)
	out.RaceResults = append([]models.RaceResult(nil), l.RaceResults...)
	return out
}

func sortByCreatedAt(lobbies []models.Lobby) {
	sort.Slice(lobbies, func(i, j int) bool {
		return lobbies[i].CreatedAt.Before(lobbies[j].CreatedAt)
	})
}
