// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// GormPostgreSQL is the GORM-backed store.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens a GORM PostgreSQL connection and migrates the
// mirror tables.
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormProfile{},
		&models.GormLobbyRecord{},
		&models.GormRaceRecord{},
	)
}

// SaveProfile upserts a user profile.
func (p *GormPostgreSQL) SaveProfile(profile *models.UserProfile) error {
	var record models.GormProfile
	result := p.db.Where("user_id = ?", profile.UserID).First(&record)

	if result.Error == gorm.ErrRecordNotFound {
		record = models.GormProfile{
			UserID:      profile.UserID,
			DisplayName: profile.DisplayName,
			RacesTotal:  profile.RacesTotal,
			Wins:        profile.Wins,
			Data:        profile.Data,
		}
		return p.db.Create(&record).Error
	} else if result.Error != nil {
		return result.Error
	}

	record.DisplayName = profile.DisplayName
	record.RacesTotal = profile.RacesTotal
	record.Wins = profile.Wins
	record.Data = profile.Data
	return p.db.Save(&record).Error
}

// LoadProfile fetches a user profile.
func (p *GormPostgreSQL) LoadProfile(userID string) (*models.UserProfile, error) {
	var record models.GormProfile
	if err := p.db.Where("user_id = ?", userID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &models.UserProfile{
		UserID:      record.UserID,
		DisplayName: record.DisplayName,
		RacesTotal:  record.RacesTotal,
		Wins:        record.Wins,
		Data:        record.Data,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

// SaveLobbyRecord upserts the mirror row for a lobby.
func (p *GormPostgreSQL) SaveLobbyRecord(l models.Lobby) error {
	participants, err := participantsJSON(l)
	if err != nil {
		return err
	}

	var record models.GormLobbyRecord
	result := p.db.Where("lobby_id = ?", l.ID).First(&record)

	if result.Error == gorm.ErrRecordNotFound {
		record = models.GormLobbyRecord{
			LobbyID:          l.ID,
			CreatorID:        l.CreatorID,
			Status:           string(l.Status),
			DistanceMeters:   l.RaceDistanceMeters,
			EntryFee:         l.EntryFee,
			PayoutMode:       string(l.PayoutMode),
			ParticipantCount: len(l.Participants),
			Participants:     participants,
		}
		return p.db.Create(&record).Error
	} else if result.Error != nil {
		return result.Error
	}

	record.Status = string(l.Status)
	record.ParticipantCount = len(l.Participants)
	record.Participants = participants
	return p.db.Save(&record).Error
}

// UpdateLobbyRecord updates just the status and roster size of a mirror row.
func (p *GormPostgreSQL) UpdateLobbyRecord(lobbyID string, status models.LobbyStatus, participantCount int) error {
	return p.db.Model(&models.GormLobbyRecord{}).
		Where("lobby_id = ?", lobbyID).
		Updates(map[string]interface{}{
			"status":            string(status),
			"participant_count": participantCount,
		}).Error
}

// SaveRaceRecord writes the completed race with its final standings.
func (p *GormPostgreSQL) SaveRaceRecord(r models.Race, results []models.RaceResult) error {
	participants := make(map[string]interface{}, len(r.Participants))
	for _, rp := range r.Participants {
		participants[rp.ID] = map[string]interface{}{
			"display_name": rp.DisplayName,
			"is_bot":       rp.IsBot,
			"distance":     rp.Distance,
		}
	}

	var duration int64
	for _, res := range results {
		if res.FinishTimeMs > duration {
			duration = res.FinishTimeMs
		}
	}

	record := models.GormRaceRecord{
		RaceID:         r.ID,
		LobbyID:        r.LobbyID,
		DistanceMeters: r.TargetDistanceMeters,
		Participants:   participants,
		Results:        append([]models.RaceResult(nil), results...),
		DurationMs:     duration,
	}
	return p.db.Create(&record).Error
}

// LoadRaceRecord reads back a stored race with its standings.
func (p *GormPostgreSQL) LoadRaceRecord(raceID string) (*models.RaceRecord, error) {
	var record models.GormRaceRecord
	if err := p.db.Where("race_id = ?", raceID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &models.RaceRecord{
		RaceID:         record.RaceID,
		LobbyID:        record.LobbyID,
		DistanceMeters: record.DistanceMeters,
		DurationMs:     record.DurationMs,
		Results:        record.Results,
	}, nil
}

// RecordRaceOutcome bumps a user's race count, and win count when won, in
// one transaction so concurrent completions cannot lose updates.
func (p *GormPostgreSQL) RecordRaceOutcome(userID, displayName string, won bool) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var record models.GormProfile
		err := tx.Where("user_id = ?", userID).First(&record).Error
		if err == gorm.ErrRecordNotFound {
			record = models.GormProfile{
				UserID:      userID,
				DisplayName: displayName,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"races_total": gorm.Expr("races_total + 1"),
		}
		if won {
			updates["wins"] = gorm.Expr("wins + 1")
		}
		return tx.Model(&record).Updates(updates).Error
	})
}

// GetProfileStats reads the racing summary for one user.
func (p *GormPostgreSQL) GetProfileStats(userID string) (models.ProfileStats, error) {
	var record models.GormProfile
	if err := p.db.Where("user_id = ?", userID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.ProfileStats{}, ErrRecordNotFound
		}
		return models.ProfileStats{}, err
	}
	return models.ProfileStats{
		RacesTotal: record.RacesTotal,
		Wins:       record.Wins,
	}, nil
}

// Close shuts the connection pool down.
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func participantsJSON(l models.Lobby) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(l.Participants))
	for _, p := range l.Participants {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		out[p.ID] = m
	}
	return out, nil
}
