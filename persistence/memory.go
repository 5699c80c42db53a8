// persistence/memory.go
package persistence

import (
	"sync"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// Memory keeps records in process memory. It is the default store when no
// database is configured and the store used by tests.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*models.UserProfile
	lobbies  map[string]models.Lobby
	races    map[string]models.Race
	results  map[string][]models.RaceResult
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]*models.UserProfile),
		lobbies:  make(map[string]models.Lobby),
		races:    make(map[string]models.Race),
		results:  make(map[string][]models.RaceResult),
	}
}

func (m *Memory) SaveProfile(p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	if existing, ok := m.profiles[p.UserID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *Memory) LoadProfile(userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) SaveLobbyRecord(l models.Lobby) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbies[l.ID] = l
	return nil
}

func (m *Memory) UpdateLobbyRecord(lobbyID string, status models.LobbyStatus, participantCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[lobbyID]
	if !ok {
		return nil
	}
	l.Status = status
	m.lobbies[lobbyID] = l
	return nil
}

func (m *Memory) SaveRaceRecord(r models.Race, results []models.RaceResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.races[r.ID] = r
	m.results[r.ID] = append([]models.RaceResult(nil), results...)
	return nil
}

func (m *Memory) LoadRaceRecord(raceID string) (*models.RaceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.races[raceID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	results := append([]models.RaceResult(nil), m.results[raceID]...)

	var duration int64
	for _, res := range results {
		if res.FinishTimeMs > duration {
			duration = res.FinishTimeMs
		}
	}
	return &models.RaceRecord{
		RaceID:         r.ID,
		LobbyID:        r.LobbyID,
		DistanceMeters: r.TargetDistanceMeters,
		DurationMs:     duration,
		Results:        results,
	}, nil
}

func (m *Memory) RecordRaceOutcome(userID, displayName string, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		p = &models.UserProfile{
			UserID:      userID,
			DisplayName: displayName,
			CreatedAt:   time.Now(),
		}
		m.profiles[userID] = p
	}
	p.RacesTotal++
	if won {
		p.Wins++
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetProfileStats(userID string) (models.ProfileStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return models.ProfileStats{}, ErrRecordNotFound
	}
	return models.ProfileStats{RacesTotal: p.RacesTotal, Wins: p.Wins}, nil
}

func (m *Memory) Close() error {
	return nil
}
