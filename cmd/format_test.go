package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tutor-cli/internal/episode"
	"github.com/sells-group/tutor-cli/internal/metrics"
	"github.com/sells-group/tutor-cli/internal/model"
)

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, &episode.Report{
		RunID:     "0123456789abcdef",
		Requested: 10,
		Completed: 4,
		Stopped:   true,
		Summary: metrics.Summary{
			Total:          4,
			Accepted:       3,
			Rejected:       1,
			AcceptanceRate: 0.75,
			AverageScore:   4.2,
			RejectsByKind:  map[string]int{metrics.RejectValidation: 1},
			Attempts:       3,
			SuccessRate:    2.0 / 3.0,
		},
		Mastery: map[string]float64{"eq2": 0.1, "eq1": 0.3},
	})
	out := buf.String()

	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
	assert.Contains(t, out, "4/10")
	assert.Contains(t, out, "Stopped:")
	assert.Contains(t, out, "validation:")
	assert.Contains(t, out, "0.75")
	assert.Contains(t, out, "0.67")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("eq1")), bytes.Index(buf.Bytes(), []byte("eq2")))
}

func TestFormatReport_OfflineHidesEpisodeCounters(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, &episode.Report{RunID: "r", Requested: 1, Completed: 1, Summary: metrics.Summary{Attempts: 1}})
	assert.NotContains(t, buf.String(), "Accepted:")
	assert.Contains(t, buf.String(), "Learner attempts:")
}

func TestFormatEpisode(t *testing.T) {
	var buf bytes.Buffer
	formatEpisode(&buf, episode.Result{
		Decision:    model.Decision{Concept: "eq1", Difficulty: 1},
		ConceptName: "One-step equations",
		Attempt:     &model.AttemptOutcome{ErrorLabel: "sign_error"},
		RejectKind:  metrics.RejectJudge,
		Err:         errors.New("judge output has no overall_score"),
	})
	out := buf.String()
	assert.Contains(t, out, "eq1 (One-step equations)")
	assert.NotContains(t, out, "Depth:")
	assert.Contains(t, out, "failure (sign_error)")
	assert.Contains(t, out, "rejected (judge)")
	assert.Contains(t, out, "no overall_score")
}

func TestFormatVerification(t *testing.T) {
	var buf bytes.Buffer
	formatVerification(&buf, model.VerificationResult{
		Reasons:  []string{"Invalid format"},
		Advisory: model.Advisory{InvalidDifficulty: true},
	})
	out := buf.String()
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "Invalid format")
	assert.Contains(t, out, "none")
	assert.Contains(t, out, "difficulty is not an integer")
}
