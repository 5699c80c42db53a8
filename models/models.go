// models/models.go
package models

import (
	"time"
)

// LobbyStatus is the lobby lifecycle state.
type LobbyStatus string

const (
	LobbyWaiting    LobbyStatus = "waiting"
	LobbyStarting   LobbyStatus = "starting"
	LobbyInProgress LobbyStatus = "in_progress"
	LobbyCompleted  LobbyStatus = "completed"
	LobbyCancelled  LobbyStatus = "cancelled"
)

// RaceStatus is the race lifecycle state.
type RaceStatus string

const (
	RacePending   RaceStatus = "pending"
	RaceRacing    RaceStatus = "racing"
	RaceCompleted RaceStatus = "completed"
)

// ParticipantStatus is a participant's state within a lobby.
type ParticipantStatus string

const (
	ParticipantDeposited    ParticipantStatus = "deposited"
	ParticipantReady        ParticipantStatus = "ready"
	ParticipantRacing       ParticipantStatus = "racing"
	ParticipantFinished     ParticipantStatus = "finished"
	ParticipantDisconnected ParticipantStatus = "disconnected"
)

// PayoutMode determines how the entry fee pool is split.
type PayoutMode string

const (
	PayoutWinnerTakesAll PayoutMode = "winner_takes_all"
	PayoutTopThree       PayoutMode = "top_three"
)

// EquipmentType is the kind of ergometer a participant races on.
type EquipmentType string

const (
	EquipmentRower EquipmentType = "rower"
	EquipmentBike  EquipmentType = "bike"
	EquipmentSki   EquipmentType = "ski"
)

// EquipmentTypes lists every supported equipment kind, in the order bots draw from.
var EquipmentTypes = []EquipmentType{EquipmentRower, EquipmentBike, EquipmentSki}

// BotDifficulty selects a bot's pacing profile.
type BotDifficulty string

const (
	BotEasy   BotDifficulty = "easy"
	BotMedium BotDifficulty = "medium"
	BotHard   BotDifficulty = "hard"
	BotElite  BotDifficulty = "elite"
)

// Participant is one competitor (human or bot) on a lobby roster.
type Participant struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"display_name"`
	WalletAddress string            `json:"wallet_address"`
	EquipmentType EquipmentType     `json:"equipment_type"`
	Status        ParticipantStatus `json:"status"`
	IsBot         bool              `json:"is_bot"`
	BotDifficulty BotDifficulty     `json:"bot_difficulty,omitempty"`
	JoinedAt      time.Time         `json:"joined_at"`
}

// Lobby is the waiting room for one race, holding entry terms and the roster.
type Lobby struct {
	ID                 string        `json:"id"`
	CreatorID          string        `json:"creator_id"`
	RaceDistanceMeters int           `json:"race_distance_meters"`
	EntryFee           string        `json:"entry_fee"` // decimal-as-string
	PayoutMode         PayoutMode    `json:"payout_mode"`
	Status             LobbyStatus   `json:"status"`
	MaxParticipants    int           `json:"max_participants"`
	MinParticipants    int           `json:"min_participants"`
	CreatedAt          time.Time     `json:"created_at"`
	Participants       []Participant `json:"participants"`
	RaceID             string        `json:"race_id,omitempty"`
	RaceResults        []RaceResult  `json:"race_results,omitempty"`
}

// FindParticipant returns the roster index of a participant, or -1.
func (l *Lobby) FindParticipant(participantID string) int {
	for i := range l.Participants {
		if l.Participants[i].ID == participantID {
			return i
		}
	}
	return -1
}

// RaceParticipant is one competitor's live progress, snapshotted from the
// lobby roster at race start and decoupled from later lobby mutation.
type RaceParticipant struct {
	ID            string        `json:"id"`
	DisplayName   string        `json:"display_name"`
	WalletAddress string        `json:"wallet_address"`
	EquipmentType EquipmentType `json:"equipment_type"`
	IsBot         bool          `json:"is_bot"`
	BotDifficulty BotDifficulty `json:"bot_difficulty,omitempty"`
	Distance      float64       `json:"distance"` // meters, never decreases
	Pace          float64       `json:"pace"`     // seconds per 500m
	Watts         float64       `json:"watts"`    // instantaneous power
	IsFinished    bool          `json:"is_finished"`
	FinishTimeMs  int64         `json:"finish_time_ms,omitempty"` // since race start
	Position      int           `json:"position,omitempty"`       // 1-based finish rank
	Withdrawn     bool          `json:"withdrawn,omitempty"`      // left mid-race, never finishes
}

// Race is the live competitive session spawned from a lobby.
type Race struct {
	ID                   string            `json:"id"`
	LobbyID              string            `json:"lobby_id"`
	Status               RaceStatus        `json:"status"`
	StartTime            *time.Time        `json:"start_time,omitempty"` // nil until countdown hits zero
	TargetDistanceMeters int               `json:"target_distance_meters"`
	Participants         []RaceParticipant `json:"participants"`
	FinishedCount        int               `json:"finished_count"`
}

// RaceResult is one participant's final standing in a completed race.
type RaceResult struct {
	Position      int           `json:"position"`
	ParticipantID string        `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
	IsBot         bool          `json:"is_bot"`
	EquipmentType EquipmentType `json:"equipment_type"`
	FinishTimeMs  int64         `json:"finish_time_ms"`
	Distance      float64       `json:"distance"`
}

// Results derives the final standings of a race, ordered by finish position.
func (r *Race) Results() []RaceResult {
	results := make([]RaceResult, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !p.IsFinished {
			continue
		}
		results = append(results, RaceResult{
			Position:      p.Position,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			IsBot:         p.IsBot,
			EquipmentType: p.EquipmentType,
			FinishTimeMs:  p.FinishTimeMs,
			Distance:      p.Distance,
		})
	}
	// Positions are a permutation of 1..FinishedCount, so placing by index sorts them.
	ordered := make([]RaceResult, len(results))
	for _, res := range results {
		if res.Position >= 1 && res.Position <= len(ordered) {
			ordered[res.Position-1] = res
		}
	}
	return ordered
}

// Winner returns the position==1 participant, if any.
func (r *Race) Winner() (RaceParticipant, bool) {
	for _, p := range r.Participants {
		if p.IsFinished && p.Position == 1 {
			return p, true
		}
	}
	return RaceParticipant{}, false
}

// FindParticipant returns the index of a race participant, or -1.
func (r *Race) FindParticipant(participantID string) int {
	for i := range r.Participants {
		if r.Participants[i].ID == participantID {
			return i
		}
	}
	return -1
}

// RaceRecord is the stored summary of a completed race, as read back from
// the persistence layer.
type RaceRecord struct {
	RaceID         string       `json:"race_id"`
	LobbyID        string       `json:"lobby_id"`
	DistanceMeters int          `json:"distance_meters"`
	DurationMs     int64        `json:"duration_ms"`
	Results        []RaceResult `json:"results"`
}

// UserProfile is a user record in the external profile store.
type UserProfile struct {
	UserID      string                 `json:"user_id"`
	DisplayName string                 `json:"display_name"`
	RacesTotal  int                    `json:"races_total"`
	Wins        int                    `json:"wins"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
