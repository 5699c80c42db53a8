// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/wmmnpr/pm5monitor-sub000/lobby"
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/network"
	"github.com/wmmnpr/pm5monitor-sub000/session"
)

// CountdownEvent is the body of a countdown tick event.
type CountdownEvent struct {
	LobbyID string `json:"lobby_id"`
	Value   int    `json:"value"`
}

// EventCounter observes every event handed to the transport. The monitor
// satisfies it; tests and callers without metrics pass nil.
type EventCounter interface {
	IncEventsBroadcast()
}

type nopCounter struct{}

func (nopCounter) IncEventsBroadcast() {}

// RoomBroadcaster fans state-change events out to connected sessions. Room
// scope is every session following a lobby; global scope is every session.
// Delivery is fire-and-forget relative to the state mutation that triggered
// it, so a slow subscriber never stalls command processing.
type RoomBroadcaster struct {
	sessionManager *session.Manager
	registry       *lobby.Registry
	counter        EventCounter
}

func NewRoomBroadcaster(sessionManager *session.Manager, registry *lobby.Registry, counter EventCounter) *RoomBroadcaster {
	if counter == nil {
		counter = nopCounter{}
	}
	return &RoomBroadcaster{
		sessionManager: sessionManager,
		registry:       registry,
		counter:        counter,
	}
}

// LobbyCreated is delivered to the creating session only.
func (b *RoomBroadcaster) LobbyCreated(sessionID string, l models.Lobby) {
	go b.sendToSession(sessionID, network.MsgTypeLobbyCreated, l)
}

// LobbyUpdated is delivered to every session in the lobby's room.
func (b *RoomBroadcaster) LobbyUpdated(l models.Lobby) {
	go b.sendToRoom(l.ID, network.MsgTypeLobbyUpdated, l)
}

// LobbyList recomputes the visible lobby list per recipient and sends it to
// every connected session. Any mutation that changes the global list must go
// through here, not just the room, because the list is filtered per user.
func (b *RoomBroadcaster) LobbyList() {
	go func() {
		b.counter.IncEventsBroadcast()
		for _, s := range b.sessionManager.All() {
			visible := b.registry.ListVisible(s.GetUserID())
			data, err := json.Marshal(visible)
			if err != nil {
				logger.Log.Errorf("Failed to marshal lobby list: %v", err)
				return
			}
			if err := s.Send(network.MsgTypeLobbyList, data); err != nil {
				continue
			}
		}
	}()
}

// SendLobbyList sends the filtered list to a single session, used to answer
// an explicit list command.
func (b *RoomBroadcaster) SendLobbyList(sessionID string) {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return
	}
	visible := b.registry.ListVisible(s.GetUserID())
	go func() {
		b.counter.IncEventsBroadcast()
		if err := s.SendJSON(network.MsgTypeLobbyList, visible); err != nil {
			logger.Log.Warnf("Failed to send lobby list to session %s: %v", sessionID, err)
		}
	}()
}

// SendLobby sends one lobby snapshot to a single session (rejoin answers).
func (b *RoomBroadcaster) SendLobby(sessionID string, l models.Lobby) {
	go b.sendToSession(sessionID, network.MsgTypeLobbyUpdated, l)
}

// SendRace sends one race snapshot to a single session (rejoin answers while
// a race is live, so a reconnecting client is never left stale).
func (b *RoomBroadcaster) SendRace(sessionID string, r models.Race) {
	go b.sendToSession(sessionID, network.MsgTypeRaceUpdate, r)
}

// Countdown is delivered to the lobby room, one event per countdown value.
func (b *RoomBroadcaster) Countdown(lobbyID string, value int) {
	go b.sendToRoom(lobbyID, network.MsgTypeCountdown, CountdownEvent{LobbyID: lobbyID, Value: value})
}

// RaceStarted is delivered to the lobby room.
func (b *RoomBroadcaster) RaceStarted(r models.Race) {
	go b.sendToRoom(r.LobbyID, network.MsgTypeRaceStarted, r)
}

// RaceUpdate is delivered to the lobby room once per tick and once per human
// metric update.
func (b *RoomBroadcaster) RaceUpdate(r models.Race) {
	go b.sendToRoom(r.LobbyID, network.MsgTypeRaceUpdate, r)
}

// RaceCompleted is delivered to the lobby room.
func (b *RoomBroadcaster) RaceCompleted(r models.Race) {
	go b.sendToRoom(r.LobbyID, network.MsgTypeRaceCompleted, r)
}

func (b *RoomBroadcaster) sendToRoom(lobbyID string, msgID uint16, v interface{}) {
	b.counter.IncEventsBroadcast()
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Failed to marshal event %d: %v", msgID, err)
		return
	}
	for _, s := range b.sessionManager.GetByLobby(lobbyID) {
		if err := s.Send(msgID, data); err != nil {
			// A dropped connection is cleaned up by its own read loop.
			continue
		}
	}
}

func (b *RoomBroadcaster) sendToSession(sessionID string, msgID uint16, v interface{}) {
	b.counter.IncEventsBroadcast()
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return
	}
	if err := s.SendJSON(msgID, v); err != nil {
		logger.Log.Warnf("Failed to send event %d to session %s: %v", msgID, sessionID, err)
	}
}
