package race

import "github.com/wmmnpr/pm5monitor-sub000/models"

// Broadcaster delivers race events to every connection in the lobby's room.
// It is defined here to break the import cycle between race and broadcast,
// and implementations must not block the caller on slow subscribers.
type Broadcaster interface {
	Countdown(lobbyID string, value int)
	RaceStarted(r models.Race)
	RaceUpdate(r models.Race)
	RaceCompleted(r models.Race)
}

// CompletionHandler receives lifecycle callbacks so the lobby side can follow
// the race: InProgress when the countdown hits zero, Completed exactly once
// when the last participant finishes.
type CompletionHandler interface {
	HandleRaceStarted(r models.Race)
	HandleRaceCompleted(r models.Race)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Countdown(string, int)     {}
func (nopBroadcaster) RaceStarted(models.Race)   {}
func (nopBroadcaster) RaceUpdate(models.Race)    {}
func (nopBroadcaster) RaceCompleted(models.Race) {}

type nopHandler struct{}

func (nopHandler) HandleRaceStarted(models.Race)   {}
func (nopHandler) HandleRaceCompleted(models.Race) {}
