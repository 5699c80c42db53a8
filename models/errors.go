// models/errors.go
package models

import "errors"

// Rejection errors. Each one refuses a command without side effects and is
// surfaced synchronously to the caller; none are fatal to the server.
var (
	ErrLobbyNotFound       = errors.New("lobby not found")
	ErrRaceNotFound        = errors.New("race not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrLobbyFull           = errors.New("lobby is full")
	ErrLobbyNotJoinable    = errors.New("lobby is not accepting participants")
	ErrLobbyNotStartable   = errors.New("lobby is not in a startable state")
	ErrInvalidDistance     = errors.New("race distance must be positive")
	ErrInvalidCapacity     = errors.New("participant bounds must satisfy 2 <= min <= max")
	ErrInvalidEntryFee     = errors.New("entry fee must be a decimal string")
	ErrInvalidDifficulty   = errors.New("unknown bot difficulty")
	ErrInvalidPayload      = errors.New("malformed command payload")
	ErrNotIdentified       = errors.New("session has not identified itself")
)

// IsNotFound reports whether err is one of the unknown-id rejections.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLobbyNotFound) ||
		errors.Is(err, ErrRaceNotFound) ||
		errors.Is(err, ErrParticipantNotFound)
}
