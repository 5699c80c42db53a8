// race/engine.go
package race

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/bot"
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// Config holds the engine's timing knobs. Tests inject short intervals.
type Config struct {
	TickInterval     time.Duration
	CountdownSeconds int
}

// DefaultConfig returns the reference cadence: 500ms ticks, 5s countdown.
func DefaultConfig() Config {
	return Config{
		TickInterval:     500 * time.Millisecond,
		CountdownSeconds: 5,
	}
}

// Engine owns every live race and the clock that drives bots and countdowns
// independent of client input.
type Engine struct {
	races       map[string]*Race
	mutex       sync.RWMutex
	cfg         Config
	broadcaster Broadcaster
	handler     CompletionHandler
	sim         *bot.Simulator
}

// NewEngine creates an engine. Broadcaster and handler may be nil, in which
// case events are dropped; the race state machine runs regardless.
func NewEngine(cfg Config, broadcaster Broadcaster, handler CompletionHandler, sim *bot.Simulator) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = DefaultConfig().CountdownSeconds
	}
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if handler == nil {
		handler = nopHandler{}
	}
	if sim == nil {
		sim = bot.NewSimulator(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return &Engine{
		races:       make(map[string]*Race),
		cfg:         cfg,
		broadcaster: broadcaster,
		handler:     handler,
		sim:         sim,
	}
}

// Start spawns a race for a lobby whose start gate has already been passed
// (the roster is the snapshot the race runs on). The countdown begins
// immediately: the first value is emitted on creation, the rest one second
// apart from the race's own loop.
func (e *Engine) Start(l models.Lobby, raceID string) (models.Race, error) {
	if l.RaceDistanceMeters <= 0 {
		return models.Race{}, models.ErrInvalidDistance
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	r := newRace(e, raceID, l)
	e.races[raceID] = r
	return r.Snapshot(), nil
}

// RecordMetrics ingests one telemetry sample for a participant. Updates for
// an already finished participant are accepted but change nothing. The first
// update observed to reach the target distance wins the next finish position,
// and a human finishing last completes the race without waiting for a tick.
func (e *Engine) RecordMetrics(raceID, participantID string, distance, pace, watts float64) (models.Race, error) {
	r, exists := e.get(raceID)
	if !exists {
		return models.Race{}, models.ErrRaceNotFound
	}

	r.mu.Lock()
	idx := r.data.FindParticipant(participantID)
	if idx < 0 {
		r.mu.Unlock()
		return models.Race{}, models.ErrParticipantNotFound
	}
	p := &r.data.Participants[idx]
	if p.IsFinished || p.Withdrawn {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, nil
	}

	// Defensive monotonicity guard; full plausibility checks belong to the
	// reporting collaborator.
	if distance > p.Distance {
		p.Distance = distance
	}
	p.Pace = pace
	p.Watts = watts

	racing := r.data.Status == models.RaceRacing
	if racing && p.Distance >= float64(r.data.TargetDistanceMeters) {
		r.finishLocked(p)
	}
	allFinished := racing && r.allDoneLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if racing {
		e.broadcaster.RaceUpdate(snap)
	}
	if allFinished {
		r.complete()
		snap = r.Snapshot()
	}
	return snap, nil
}

// Withdraw takes a participant out of a live race after an explicit leave.
// A withdrawn participant never finishes and holds no position, and stops
// counting toward the all-finished check, so a race cannot idle forever
// waiting on someone who left. Unknown ids and finished participants are a
// no-op.
func (e *Engine) Withdraw(raceID, participantID string) {
	r, exists := e.get(raceID)
	if !exists {
		return
	}

	r.mu.Lock()
	idx := r.data.FindParticipant(participantID)
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	p := &r.data.Participants[idx]
	if p.IsFinished || p.Withdrawn {
		r.mu.Unlock()
		return
	}
	p.Withdrawn = true

	racing := r.data.Status == models.RaceRacing
	allDone := racing && r.allDoneLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	logger.Log.Infof("Participant %s withdrew from race %s", participantID, raceID)

	if racing {
		e.broadcaster.RaceUpdate(snap)
	}
	if allDone {
		r.complete()
	}
}

// Get returns a snapshot of one race.
func (e *Engine) Get(raceID string) (models.Race, bool) {
	r, exists := e.get(raceID)
	if !exists {
		return models.Race{}, false
	}
	return r.Snapshot(), true
}

// Abort cancels a race and its in-flight countdown or tick loop. Used on
// lobby teardown and server shutdown; nothing fires after it returns.
func (e *Engine) Abort(raceID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if r, exists := e.races[raceID]; exists {
		r.Close()
		delete(e.races, raceID)
	}
}

// Remove drops a completed race from the engine. The janitor calls this when
// the owning lobby is swept.
func (e *Engine) Remove(raceID string) {
	e.Abort(raceID)
}

// CountActive returns how many races are not yet completed.
func (e *Engine) CountActive() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	count := 0
	for _, r := range e.races {
		if r.Snapshot().Status != models.RaceCompleted {
			count++
		}
	}
	return count
}

// Shutdown closes every race loop.
func (e *Engine) Shutdown() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for id, r := range e.races {
		r.Close()
		delete(e.races, id)
	}
}

func (e *Engine) get(raceID string) (*Race, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	r, exists := e.races[raceID]
	return r, exists
}
