package coordinator

import "github.com/wmmnpr/pm5monitor-sub000/models"

// Notifier is the lobby-side slice of the event broadcaster. The coordinator
// emits typed events; transport fan-out lives in the broadcast package.
type Notifier interface {
	LobbyCreated(sessionID string, l models.Lobby)
	LobbyUpdated(l models.Lobby)
	LobbyList()
	SendLobby(sessionID string, l models.Lobby)
	SendRace(sessionID string, r models.Race)
}

// Hooks are the external-persistence triggers. Every call is best-effort and
// fire-and-forget: a failing hook is logged by its implementation and never
// blocks, reverts, or surfaces to the client. The core runs correctly with
// all of them stubbed to no-ops.
type Hooks interface {
	OnLobbyCreated(l models.Lobby)
	OnLobbyStatusChanged(lobbyID string, status models.LobbyStatus, participantCount int)
	OnLobbyCompleted(l models.Lobby)
	OnRaceCompleted(r models.Race)
	OnUserStatsShouldUpdate(r models.Race)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) LobbyCreated(string, models.Lobby) {}
func (NopNotifier) LobbyUpdated(models.Lobby)         {}
func (NopNotifier) LobbyList()                        {}
func (NopNotifier) SendLobby(string, models.Lobby)    {}
func (NopNotifier) SendRace(string, models.Race)      {}

// NopHooks ignores every trigger.
type NopHooks struct{}

func (NopHooks) OnLobbyCreated(models.Lobby)                          {}
func (NopHooks) OnLobbyStatusChanged(string, models.LobbyStatus, int) {}
func (NopHooks) OnLobbyCompleted(models.Lobby)                        {}
func (NopHooks) OnRaceCompleted(models.Race)                          {}
func (NopHooks) OnUserStatsShouldUpdate(models.Race)                  {}
