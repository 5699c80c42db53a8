// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormProfile mirrors a user profile in the external store.
type GormProfile struct {
	gorm.Model
	UserID      string                 `gorm:"uniqueIndex;not null"`
	DisplayName string                 `gorm:"not null"`
	RacesTotal  int                    `gorm:"default:0"`
	Wins        int                    `gorm:"default:0"`
	Data        map[string]interface{} `gorm:"type:jsonb;serializer:json"`
}

// GormLobbyRecord mirrors a lobby's terms and roster.
type GormLobbyRecord struct {
	gorm.Model
	LobbyID          string                 `gorm:"uniqueIndex;not null"`
	CreatorID        string                 `gorm:"index;not null"`
	Status           string                 `gorm:"not null"`
	DistanceMeters   int                    `gorm:"not null"`
	EntryFee         string                 `gorm:"not null"`
	PayoutMode       string                 `gorm:"not null"`
	ParticipantCount int                    `gorm:"default:0"`
	Participants     map[string]interface{} `gorm:"type:jsonb;serializer:json"`
}

// GormRaceRecord mirrors a completed race with its final standings.
type GormRaceRecord struct {
	gorm.Model
	RaceID         string                 `gorm:"uniqueIndex;not null"`
	LobbyID        string                 `gorm:"index;not null"`
	DistanceMeters int                    `gorm:"not null"`
	Participants   map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	Results        []RaceResult           `gorm:"type:jsonb;serializer:json"`
	DurationMs     int64                  `gorm:"default:0"`
}

// ProfileStats summarizes a user's racing history.
type ProfileStats struct {
	RacesTotal int `json:"races_total"`
	Wins       int `json:"wins"`
}
