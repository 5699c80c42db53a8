// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/network"
)

// Session is the explicit per-connection state: identity once the client has
// identified itself, and the lobby room the connection currently follows.
type Session struct {
	ID          string
	Conn        network.Connection
	UserID      string
	DisplayName string
	LobbyID     string
	Identified  bool
	CreatedAt   time.Time
	LastActive  time.Time
	mutex       sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Identify binds a user identity to the connection.
func (s *Session) Identify(userID, displayName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserID = userID
	s.DisplayName = displayName
	s.Identified = true
}

// IsIdentified reports whether the connection has identified itself.
func (s *Session) IsIdentified() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Identified
}

// SetLobby associates the connection with a lobby room ("" leaves the room).
func (s *Session) SetLobby(lobbyID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LobbyID = lobbyID
}

// GetLobby returns the lobby room the connection follows.
func (s *Session) GetLobby() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.LobbyID
}

// GetUserID returns the identified user id, or "".
func (s *Session) GetUserID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) SendJSON(msgID uint16, v interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.SendJSON(msgID, v)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks every live connection.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// All returns a copy of every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// GetByLobby returns the sessions currently associated with a lobby room.
func (m *Manager) GetByLobby(lobbyID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetLobby() == lobbyID {
			result = append(result, session)
		}
	}
	return result
}

// GetByUserID returns every session identified as the given user.
func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetUserID() == userID {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
