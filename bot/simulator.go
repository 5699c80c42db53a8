// bot/simulator.go
package bot

import (
	"math/rand"
	"sync"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// Profile holds the pacing model for one difficulty tier.
type Profile struct {
	PaceSec  float64 // base pace, seconds per 500m
	PaceVar  float64
	Watts    float64 // base power output
	WattsVar float64
	Speed    float64 // base speed, m/s
}

// profiles is the fixed difficulty table.
var profiles = map[models.BotDifficulty]Profile{
	models.BotEasy:   {PaceSec: 150, PaceVar: 10, Watts: 120, WattsVar: 20, Speed: 3.3},
	models.BotMedium: {PaceSec: 120, PaceVar: 8, Watts: 180, WattsVar: 25, Speed: 4.2},
	models.BotHard:   {PaceSec: 100, PaceVar: 5, Watts: 250, WattsVar: 30, Speed: 5.0},
	models.BotElite:  {PaceSec: 90, PaceVar: 3, Watts: 320, WattsVar: 35, Speed: 5.6},
}

// ProfileFor returns the pacing profile for a difficulty.
func ProfileFor(difficulty models.BotDifficulty) (Profile, bool) {
	p, ok := profiles[difficulty]
	return p, ok
}

// Simulator produces plausible, non-decreasing progress for bot participants.
// The random source is injected so tests can reproduce runs.
type Simulator struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSimulator creates a simulator over the given random source.
func NewSimulator(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng}
}

// Advance recomputes a bot's distance, pace and watts for the given elapsed
// wall-clock seconds since race start. Distance is clamped to the target and
// never decreases, regardless of jitter sign. The participant is mutated in
// place; an already finished participant is left untouched.
func (s *Simulator) Advance(p *models.RaceParticipant, elapsedSeconds float64, targetMeters int) {
	if p.IsFinished {
		return
	}
	profile, ok := profiles[p.BotDifficulty]
	if !ok {
		return
	}

	s.mu.Lock()
	speedJitter := (s.rng.Float64() - 0.5) * 0.2 // uniform in [-0.1, +0.1]
	paceJitter := (s.rng.Float64() - 0.5) * profile.PaceVar
	wattsJitter := (s.rng.Float64() - 0.5) * profile.WattsVar
	s.mu.Unlock()

	candidate := elapsedSeconds * profile.Speed * (1 + speedJitter)
	if candidate > float64(targetMeters) {
		candidate = float64(targetMeters)
	}
	if candidate > p.Distance {
		p.Distance = candidate
	}

	// Pace and watts are display-only and carry no gameplay effect.
	p.Pace = profile.PaceSec + paceJitter
	p.Watts = profile.Watts + wattsJitter
}
