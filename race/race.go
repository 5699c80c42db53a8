// race/race.go
package race

import (
	"sync"
	"time"

	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/state"
)

// Race is the runtime for one live race. A dedicated loop goroutine drives
// the Pending -> Racing -> Completed state machine at the engine's tick
// cadence; all mutations of the race data are serialized through mu.
type Race struct {
	data      models.Race
	machine   state.Machine
	racingSt  *racingState
	finalSt   *completedState
	engine    *Engine
	startedAt time.Time

	mu        sync.RWMutex
	completed bool

	ticker    *time.Ticker
	closeChan chan bool
	closeOnce sync.Once
}

func newRace(engine *Engine, raceID string, l models.Lobby) *Race {
	participants := make([]models.RaceParticipant, 0, len(l.Participants))
	for _, p := range l.Participants {
		participants = append(participants, models.RaceParticipant{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			WalletAddress: p.WalletAddress,
			EquipmentType: p.EquipmentType,
			IsBot:         p.IsBot,
			BotDifficulty: p.BotDifficulty,
		})
	}

	r := &Race{
		data: models.Race{
			ID:                   raceID,
			LobbyID:              l.ID,
			Status:               models.RacePending,
			TargetDistanceMeters: l.RaceDistanceMeters,
			Participants:         participants,
		},
		engine:    engine,
		closeChan: make(chan bool),
	}

	r.racingSt = newRacingState(r)
	r.finalSt = newCompletedState(r)

	countdown := newCountdownState(r, engine.cfg.CountdownSeconds)
	r.machine = state.NewBaseMachine(countdown)
	r.machine.AddTransition(countdown, r.racingSt, nil)
	r.machine.AddTransition(r.racingSt, r.finalSt, func() bool {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.completed
	})

	r.ticker = time.NewTicker(engine.cfg.TickInterval)
	go r.loop()

	return r
}

// loop drives the current state at the tick cadence until Close.
func (r *Race) loop() {
	for {
		select {
		case <-r.ticker.C:
			if current := r.machine.GetCurrentState(); current != nil {
				current.OnUpdate()
			}
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Close stops the loop. Safe to call more than once; nothing fires after it.
func (r *Race) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Snapshot returns a deep copy of the race data.
func (r *Race) Snapshot() models.Race {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Race) snapshotLocked() models.Race {
	out := r.data
	out.Participants = append([]models.RaceParticipant(nil), r.data.Participants...)
	if r.data.StartTime != nil {
		t := *r.data.StartTime
		out.StartTime = &t
	}
	return out
}

// beginRacing stamps the start time and flips the race into the Racing state.
// Called by the countdown state one second after it emits 1.
func (r *Race) beginRacing() {
	r.mu.Lock()
	now := time.Now()
	r.startedAt = now
	r.data.StartTime = &now
	r.data.Status = models.RaceRacing
	r.mu.Unlock()

	r.machine.ChangeState(r.racingSt)
}

// finishLocked flips a participant to finished. The transition is one-way:
// position and finish time are assigned once, in crossing-observation order.
// Caller holds mu.
func (r *Race) finishLocked(p *models.RaceParticipant) {
	p.IsFinished = true
	p.FinishTimeMs = time.Since(r.startedAt).Milliseconds()
	r.data.FinishedCount++
	p.Position = r.data.FinishedCount
}

// complete flips the race to Completed exactly once. Both the tick loop and
// a human crossing the line through RecordMetrics funnel through here.
func (r *Race) complete() {
	r.mu.Lock()
	if r.completed {
		r.mu.Unlock()
		return
	}
	r.completed = true
	r.data.Status = models.RaceCompleted
	r.mu.Unlock()

	r.machine.ChangeState(r.finalSt)
	r.Close()
}

// allDoneLocked reports whether no participant can still finish: everyone has
// either crossed the line or withdrawn. Caller holds mu.
func (r *Race) allDoneLocked() bool {
	for i := range r.data.Participants {
		p := &r.data.Participants[i]
		if !p.IsFinished && !p.Withdrawn {
			return false
		}
	}
	return true
}
