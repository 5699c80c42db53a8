// race/states.go
package race

import (
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/state"
)

// countdownState emits one countdown value per second, descending, then
// hands over to the racing state one second after emitting 1.
type countdownState struct {
	state.Base
	race             *Race
	value            int
	updatesPerSecond int
	counter          int
}

func newCountdownState(r *Race, seconds int) *countdownState {
	updates := int(time.Second / r.engine.cfg.TickInterval)
	if updates < 1 {
		updates = 1
	}
	return &countdownState{
		Base:             state.Base{ID: "countdown"},
		race:             r,
		value:            seconds,
		updatesPerSecond: updates,
	}
}

func (s *countdownState) OnEnter() {
	logger.Log.Infof("Race %s countdown started from %d", s.race.data.ID, s.value)
	s.race.engine.broadcaster.Countdown(s.race.data.LobbyID, s.value)
	s.value--
}

func (s *countdownState) OnUpdate() {
	s.counter++
	if s.counter < s.updatesPerSecond {
		return
	}
	s.counter = 0

	if s.value >= 1 {
		s.race.engine.broadcaster.Countdown(s.race.data.LobbyID, s.value)
		s.value--
		return
	}
	s.race.beginRacing()
}

// racingState advances bots every tick, broadcasts the tick snapshot, and
// triggers completion once every participant has finished.
type racingState struct {
	state.Base
	race *Race
}

func newRacingState(r *Race) *racingState {
	return &racingState{
		Base: state.Base{ID: "racing"},
		race: r,
	}
}

func (s *racingState) OnEnter() {
	r := s.race
	snap := r.Snapshot()
	logger.Log.Infof("Race %s started, target %dm, %d participants",
		snap.ID, snap.TargetDistanceMeters, len(snap.Participants))
	r.engine.broadcaster.RaceStarted(snap)
	r.engine.handler.HandleRaceStarted(snap)
}

func (s *racingState) OnUpdate() {
	r := s.race
	elapsed := time.Since(r.startedAt).Seconds()

	r.mu.Lock()
	if r.completed {
		r.mu.Unlock()
		return
	}
	for i := range r.data.Participants {
		p := &r.data.Participants[i]
		if !p.IsBot || p.IsFinished || p.Withdrawn {
			continue
		}
		r.engine.sim.Advance(p, elapsed, r.data.TargetDistanceMeters)
		if p.Distance >= float64(r.data.TargetDistanceMeters) {
			r.finishLocked(p)
		}
	}
	allFinished := r.allDoneLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.engine.broadcaster.RaceUpdate(snap)
	if allFinished {
		r.complete()
	}
}

// completedState is terminal; entering it fires the RaceCompleted event and
// the completion handler.
type completedState struct {
	state.Base
	race *Race
}

func newCompletedState(r *Race) *completedState {
	return &completedState{
		Base: state.Base{ID: "completed"},
		race: r,
	}
}

func (s *completedState) OnEnter() {
	r := s.race
	snap := r.Snapshot()
	logger.Log.Infof("Race %s completed, %d finishers", snap.ID, snap.FinishedCount)
	r.engine.broadcaster.RaceCompleted(snap)
	r.engine.handler.HandleRaceCompleted(snap)
}
