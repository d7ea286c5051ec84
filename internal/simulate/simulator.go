// Package simulate provides a probabilistic learner used to evaluate the
// selection policy offline.
package simulate

import (
	"math"
	"math/rand/v2"

	"github.com/sells-group/tutor-cli/internal/model"
)

const (
	// MaxSuccessProbability caps the chance that a simulated attempt succeeds.
	MaxSuccessProbability = 0.9
	// MasteryBonus is added to the current mastery to get the success chance.
	MasteryBonus = 0.2
	// UnknownError labels a failure when the learner has no logged misconception.
	UnknownError = "unknown_error"
)

// Source is the randomness a simulated attempt draws from. *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Learner is the read side of the learner model the simulator needs.
type Learner interface {
	Mastery(concept string) float64
	Misconceptions() []string
}

// NewSource returns a PCG-backed generator seeded with seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SuccessProbability is min(0.9, mastery+0.2).
func SuccessProbability(mastery float64) float64 {
	return math.Min(MaxSuccessProbability, mastery+MasteryBonus)
}

// Attempt simulates one attempt at concept. A failure is attributed to a
// misconception drawn uniformly from the learner's log, or UnknownError when
// the log is empty. The learner is not modified.
func Attempt(concept string, learner Learner, rng Source) model.AttemptOutcome {
	if rng.Float64() < SuccessProbability(learner.Mastery(concept)) {
		return model.AttemptOutcome{Success: true}
	}
	logged := learner.Misconceptions()
	if len(logged) == 0 {
		return model.AttemptOutcome{ErrorLabel: UnknownError}
	}
	return model.AttemptOutcome{ErrorLabel: logged[rng.IntN(len(logged))]}
}
