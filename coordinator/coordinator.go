// coordinator/coordinator.go
package coordinator

import (
	"time"

	"github.com/google/uuid"

	"github.com/wmmnpr/pm5monitor-sub000/bot"
	"github.com/wmmnpr/pm5monitor-sub000/lobby"
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/race"
)

// Coordinator is the command surface both transports dispatch into. It owns
// the race engine, drives the lobby registry, notifies subscribers, and fires
// the external persistence hooks. All errors it returns are per-request
// rejections; nothing here is fatal to the process.
type Coordinator struct {
	registry *lobby.Registry
	engine   *race.Engine
	notifier Notifier
	hooks    Hooks
}

// New wires a coordinator. The race engine is constructed here with the
// coordinator as its completion handler, so lobby state follows race state.
// Nil notifier or hooks degrade to no-ops.
func New(registry *lobby.Registry, notifier Notifier, raceCast race.Broadcaster, hooks Hooks, cfg race.Config, sim *bot.Simulator) *Coordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	c := &Coordinator{
		registry: registry,
		notifier: notifier,
		hooks:    hooks,
	}
	c.engine = race.NewEngine(cfg, raceCast, c, sim)
	return c
}

// CreateLobby opens a lobby. The sessionID may be empty when the command
// arrives over the request/response transport.
func (c *Coordinator) CreateLobby(sessionID string, req models.CreateLobbyRequest) (models.Lobby, error) {
	l, err := c.registry.Create(req.CreatorID, req.RaceDistanceMeters, req.EntryFee,
		req.PayoutMode, req.MaxParticipants, req.MinParticipants)
	if err != nil {
		return models.Lobby{}, err
	}

	logger.Log.Infof("Lobby %s created by %s (%dm, %d-%d participants)",
		l.ID, l.CreatorID, l.RaceDistanceMeters, l.MinParticipants, l.MaxParticipants)

	c.hooks.OnLobbyCreated(l)
	if sessionID != "" {
		c.notifier.LobbyCreated(sessionID, l)
	}
	c.notifier.LobbyList()
	return l, nil
}

// JoinLobby adds a participant. Re-joining with the same id is idempotent.
func (c *Coordinator) JoinLobby(lobbyID string, p models.Participant) (models.Lobby, error) {
	l, err := c.registry.Join(lobbyID, p)
	if err != nil {
		return models.Lobby{}, err
	}

	c.hooks.OnLobbyStatusChanged(l.ID, l.Status, len(l.Participants))
	c.notifier.LobbyUpdated(l)
	c.notifier.LobbyList()
	return l, nil
}

// AddBot adds a simulated participant, ready on arrival.
func (c *Coordinator) AddBot(lobbyID string, difficulty models.BotDifficulty) (models.Lobby, models.Participant, error) {
	l, p, err := c.registry.AddBot(lobbyID, difficulty)
	if err != nil {
		return models.Lobby{}, models.Participant{}, err
	}

	logger.Log.Infof("Bot %s (%s) joined lobby %s", p.DisplayName, p.BotDifficulty, l.ID)

	c.hooks.OnLobbyStatusChanged(l.ID, l.Status, len(l.Participants))
	c.notifier.LobbyUpdated(l)
	c.notifier.LobbyList()
	return l, p, nil
}

// SetReady flips a participant to ready.
func (c *Coordinator) SetReady(lobbyID, participantID string) (models.Lobby, error) {
	l, err := c.registry.SetReady(lobbyID, participantID)
	if err != nil {
		return models.Lobby{}, err
	}

	c.notifier.LobbyUpdated(l)
	return l, nil
}

// LeaveLobby removes a participant on an explicit leave command. A dropped
// connection deliberately does not end up here.
func (c *Coordinator) LeaveLobby(lobbyID, participantID string) (models.Lobby, error) {
	l, err := c.registry.Remove(lobbyID, participantID)
	if err != nil {
		return models.Lobby{}, err
	}

	if l.RaceID != "" {
		switch l.Status {
		case models.LobbyCancelled:
			c.engine.Abort(l.RaceID)
		case models.LobbyStarting, models.LobbyInProgress:
			// The race keeps running without them; withdrawal stops the
			// all-finished check from waiting on a departed participant.
			c.engine.Withdraw(l.RaceID, participantID)
		}
	}

	c.hooks.OnLobbyStatusChanged(l.ID, l.Status, len(l.Participants))
	c.notifier.LobbyUpdated(l)
	c.notifier.LobbyList()
	return l, nil
}

// Rejoin answers a reconnecting session with the current lobby state and,
// when a race is live, the current race state.
func (c *Coordinator) Rejoin(sessionID, lobbyID string) (models.Lobby, *models.Race, error) {
	l, exists := c.registry.Get(lobbyID)
	if !exists {
		return models.Lobby{}, nil, models.ErrLobbyNotFound
	}

	var liveRace *models.Race
	if l.RaceID != "" {
		if r, ok := c.engine.Get(l.RaceID); ok {
			liveRace = &r
		}
	}

	if sessionID != "" {
		c.notifier.SendLobby(sessionID, l)
		if liveRace != nil {
			c.notifier.SendRace(sessionID, *liveRace)
		}
	}
	return l, liveRace, nil
}

// StartRace spawns the race for a startable lobby. The readiness gate and
// the Waiting->Starting flip happen atomically in the registry, so two
// concurrent starts cannot both pass.
func (c *Coordinator) StartRace(lobbyID string) (models.Race, error) {
	raceID := uuid.New().String()
	l, err := c.registry.BeginRace(lobbyID, raceID)
	if err != nil {
		return models.Race{}, err
	}

	r, err := c.engine.Start(l, raceID)
	if err != nil {
		c.registry.Cancel(lobbyID)
		return models.Race{}, err
	}

	c.hooks.OnLobbyStatusChanged(l.ID, models.LobbyStarting, len(l.Participants))
	c.notifier.LobbyUpdated(l)
	c.notifier.LobbyList()
	return r, nil
}

// ReportMetrics ingests one telemetry sample from the reporting collaborator.
func (c *Coordinator) ReportMetrics(req models.ReportMetricsRequest) (models.Race, error) {
	return c.engine.RecordMetrics(req.RaceID, req.ParticipantID, req.Distance, req.Pace, req.Watts)
}

// ListLobbies returns the lobbies visible to a user ("" lists globally).
func (c *Coordinator) ListLobbies(userID string) []models.Lobby {
	return c.registry.ListVisible(userID)
}

// GetLobby returns one lobby snapshot.
func (c *Coordinator) GetLobby(lobbyID string) (models.Lobby, error) {
	l, exists := c.registry.Get(lobbyID)
	if !exists {
		return models.Lobby{}, models.ErrLobbyNotFound
	}
	return l, nil
}

// GetRace returns one race snapshot.
func (c *Coordinator) GetRace(raceID string) (models.Race, error) {
	r, exists := c.engine.Get(raceID)
	if !exists {
		return models.Race{}, models.ErrRaceNotFound
	}
	return r, nil
}

// HandleRaceStarted implements race.CompletionHandler: the countdown reached
// zero, so the lobby flips to InProgress.
func (c *Coordinator) HandleRaceStarted(r models.Race) {
	l, err := c.registry.MarkRacing(r.LobbyID)
	if err != nil {
		logger.Log.Warnf("Race %s started for unknown lobby %s", r.ID, r.LobbyID)
		return
	}
	c.hooks.OnLobbyStatusChanged(l.ID, l.Status, len(l.Participants))
	c.notifier.LobbyUpdated(l)
}

// HandleRaceCompleted implements race.CompletionHandler. The engine fires it
// exactly once per race; the lobby receives its immutable result snapshot and
// every persistence hook triggers.
func (c *Coordinator) HandleRaceCompleted(r models.Race) {
	results := r.Results()
	l, err := c.registry.CompleteRace(r.LobbyID, results)
	if err != nil {
		logger.Log.Warnf("Race %s completed for unknown lobby %s", r.ID, r.LobbyID)
		return
	}

	c.hooks.OnLobbyCompleted(l)
	c.hooks.OnRaceCompleted(r)
	c.hooks.OnUserStatsShouldUpdate(r)
	c.notifier.LobbyUpdated(l)
	c.notifier.LobbyList()
}

// Sweep removes terminal lobbies past their retention window along with
// their races. Driven by the timer manager.
func (c *Coordinator) Sweep(retention time.Duration) int {
	removed := c.registry.Sweep(retention)
	for _, l := range removed {
		if l.RaceID != "" {
			c.engine.Remove(l.RaceID)
		}
	}
	if len(removed) > 0 {
		logger.Log.Infof("Swept %d terminal lobbies", len(removed))
		c.notifier.LobbyList()
	}
	return len(removed)
}

// ActiveLobbies returns the number of non-terminal lobbies.
func (c *Coordinator) ActiveLobbies() int {
	return c.registry.CountActive()
}

// ActiveRaces returns the number of races still running.
func (c *Coordinator) ActiveRaces() int {
	return c.engine.CountActive()
}

// Shutdown stops every race loop.
func (c *Coordinator) Shutdown() {
	c.engine.Shutdown()
}
