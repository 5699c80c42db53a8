// services/sync_service.go
package services

import (
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
)

// SyncService mirrors lobby and race state into the database. Every hook
// runs in its own goroutine and only logs on failure, so a slow or broken
// store never stalls the race loop.
type SyncService struct {
	db persistence.Database
}

func NewSyncService(db persistence.Database) *SyncService {
	return &SyncService{db: db}
}

func (s *SyncService) OnLobbyCreated(l models.Lobby) {
	go func() {
		if err := s.db.SaveLobbyRecord(l); err != nil {
			logger.Log.Warnf("lobby record save failed: lobby=%s err=%v", l.ID, err)
		}
	}()
}

func (s *SyncService) OnLobbyStatusChanged(lobbyID string, status models.LobbyStatus, participantCount int) {
	go func() {
		if err := s.db.UpdateLobbyRecord(lobbyID, status, participantCount); err != nil {
			logger.Log.Warnf("lobby record update failed: lobby=%s err=%v", lobbyID, err)
		}
	}()
}

func (s *SyncService) OnLobbyCompleted(l models.Lobby) {
	go func() {
		if err := s.db.SaveLobbyRecord(l); err != nil {
			logger.Log.Warnf("completed lobby save failed: lobby=%s err=%v", l.ID, err)
		}
	}()
}

func (s *SyncService) OnRaceCompleted(r models.Race) {
	go func() {
		if err := s.db.SaveRaceRecord(r, r.Results()); err != nil {
			logger.Log.Warnf("race record save failed: race=%s err=%v", r.ID, err)
		}
	}()
}

func (s *SyncService) OnUserStatsShouldUpdate(r models.Race) {
	winner, hasWinner := r.Winner()
	for i := range r.Participants {
		p := r.Participants[i]
		if p.IsBot {
			continue
		}
		won := hasWinner && winner.ID == p.ID
		go func() {
			if err := s.db.RecordRaceOutcome(p.ID, p.DisplayName, won); err != nil {
				logger.Log.Warnf("stats update failed: user=%s err=%v", p.ID, err)
			}
		}()
	}
}
