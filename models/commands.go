// models/commands.go
package models

// Command payloads shared by the websocket and HTTP transports. Both surfaces
// decode into the same structs so they produce identical state transitions.

// IdentifyRequest binds a user identity to a live connection.
type IdentifyRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// CreateLobbyRequest opens a new lobby.
type CreateLobbyRequest struct {
	CreatorID          string     `json:"creator_id"`
	RaceDistanceMeters int        `json:"race_distance_meters"`
	EntryFee           string     `json:"entry_fee"`
	PayoutMode         PayoutMode `json:"payout_mode"`
	MaxParticipants    int        `json:"max_participants"`
	MinParticipants    int        `json:"min_participants"`
}

// JoinLobbyRequest adds a participant to a lobby roster.
type JoinLobbyRequest struct {
	LobbyID     string      `json:"lobby_id"`
	Participant Participant `json:"participant"`
}

// AddBotRequest adds a simulated participant to a lobby.
type AddBotRequest struct {
	LobbyID    string        `json:"lobby_id"`
	Difficulty BotDifficulty `json:"difficulty"`
}

// SetReadyRequest flips a participant to ready.
type SetReadyRequest struct {
	LobbyID       string `json:"lobby_id"`
	ParticipantID string `json:"participant_id"`
}

// LeaveLobbyRequest removes a participant from a lobby.
type LeaveLobbyRequest struct {
	LobbyID       string `json:"lobby_id"`
	ParticipantID string `json:"participant_id"`
}

// RejoinRequest re-associates a reconnected session with its lobby.
type RejoinRequest struct {
	LobbyID string `json:"lobby_id"`
}

// StartRaceRequest starts the race for a lobby.
type StartRaceRequest struct {
	LobbyID string `json:"lobby_id"`
}

// ReportMetricsRequest carries one equipment telemetry sample.
type ReportMetricsRequest struct {
	RaceID        string  `json:"race_id"`
	ParticipantID string  `json:"participant_id"`
	Distance      float64 `json:"distance"`
	Pace          float64 `json:"pace"`
	Watts         float64 `json:"watts"`
}

// ListLobbiesRequest asks for the lobby list visible to a user. An empty
// UserID selects the unfiltered global listing variant.
type ListLobbiesRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// ErrorReply is sent to a client whose command was rejected.
type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
