package simulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tutor-cli/internal/mastery"
)

// scriptedSource replays fixed draws.
type scriptedSource struct {
	floats []float64
	ints   []int
	nCalls []int
}

func (s *scriptedSource) Float64() float64 {
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedSource) IntN(n int) int {
	s.nCalls = append(s.nCalls, n)
	i := s.ints[0]
	s.ints = s.ints[1:]
	return i
}

func storeAt(t *testing.T, concept string, steps int, failures ...string) *mastery.Store {
	t.Helper()
	s := mastery.New()
	for _, label := range failures {
		s.RecordAttempt(concept, false, label)
	}
	for i := 0; i < steps; i++ {
		s.RecordAttempt(concept, true, "")
	}
	return s
}

func TestSuccessProbability(t *testing.T) {
	assert.InDelta(t, 0.2, SuccessProbability(0.0), 1e-12)
	assert.InDelta(t, 0.7, SuccessProbability(0.5), 1e-12)
	assert.InDelta(t, 0.9, SuccessProbability(0.7), 1e-12)
	assert.Equal(t, 0.9, SuccessProbability(1.0))
}

func TestAttempt_Success(t *testing.T) {
	s := storeAt(t, "eq1", 5)
	src := &scriptedSource{floats: []float64{0.69}}
	out := Attempt("eq1", s, src)
	assert.True(t, out.Success)
	assert.Empty(t, out.ErrorLabel)
	assert.Empty(t, src.nCalls)
}

func TestAttempt_BoundaryDrawFails(t *testing.T) {
	s := storeAt(t, "eq1", 5)
	out := Attempt("eq1", s, &scriptedSource{floats: []float64{0.7}})
	assert.False(t, out.Success)
	assert.Equal(t, UnknownError, out.ErrorLabel)
}

func TestAttempt_FailurePicksFromLog(t *testing.T) {
	s := storeAt(t, "eq1", 0, "sign_error", "inverse_operation")
	src := &scriptedSource{floats: []float64{0.95}, ints: []int{1}}
	out := Attempt("eq1", s, src)
	assert.False(t, out.Success)
	assert.Equal(t, "inverse_operation", out.ErrorLabel)
	assert.Equal(t, []int{2}, src.nCalls)
}

func TestAttempt_DoesNotMutateLearner(t *testing.T) {
	s := storeAt(t, "eq1", 3)
	before := s.History()
	Attempt("eq1", s, NewSource(1))
	assert.Equal(t, before, s.History())
	assert.InDelta(t, 0.3, s.Mastery("eq1"), 1e-12)
}

func TestAttempt_SeededIsDeterministic(t *testing.T) {
	s := storeAt(t, "eq1", 2, "sign_error", "order_of_operations")
	a, b := NewSource(42), NewSource(42)
	for i := 0; i < 200; i++ {
		require.Equal(t, Attempt("eq1", s, a), Attempt("eq1", s, b))
	}
}

func TestAttempt_ConvergesToSuccessProbability(t *testing.T) {
	const trials = 20000
	for _, steps := range []int{0, 3, 5, 9} {
		s := storeAt(t, "eq1", steps)
		p := SuccessProbability(s.Mastery("eq1"))
		rng := NewSource(uint64(1000 + steps))

		successes := 0
		for i := 0; i < trials; i++ {
			if Attempt("eq1", s, rng).Success {
				successes++
			}
		}
		// 99.9% two-sided normal interval.
		halfWidth := 3.29 * math.Sqrt(p*(1-p)/trials)
		assert.InDelta(t, p, float64(successes)/trials, halfWidth, "mastery %.1f", s.Mastery("eq1"))
	}
}

func TestAttempt_FailureLabelsAreUniform(t *testing.T) {
	labels := []string{"a", "b", "c"}
	s := storeAt(t, "eq1", 0, labels...)
	rng := NewSource(7)

	counts := map[string]int{}
	failures := 0
	for i := 0; i < 30000; i++ {
		out := Attempt("eq1", s, rng)
		if !out.Success {
			counts[out.ErrorLabel]++
			failures++
		}
	}
	require.Positive(t, failures)
	for _, l := range labels {
		share := float64(counts[l]) / float64(failures)
		assert.InDelta(t, 1.0/3, share, 0.03, l)
	}
	assert.Zero(t, counts[UnknownError])
}
