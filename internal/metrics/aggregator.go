// Package metrics aggregates accept/reject outcomes and judge scores over a run.
package metrics

import (
	"maps"

	"go.uber.org/zap"
)

// Reject kinds recorded by LogRejectReason.
const (
	RejectValidation  = "validation"
	RejectGenerator   = "generator"
	RejectJudge       = "judge"
	RejectNoConcept   = "no_concept"
	RejectUnspecified = "unspecified"
)

// Summary is a point-in-time view of a run.
type Summary struct {
	Total          int            `json:"total"`
	Accepted       int            `json:"accepted"`
	Rejected       int            `json:"rejected"`
	AcceptanceRate float64        `json:"acceptance_rate"`
	AverageScore   float64        `json:"average_score"`
	RejectsByKind  map[string]int `json:"rejects_by_kind"`

	// Simulated learner outcomes.
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

// Aggregator accumulates run metrics. It is not safe for concurrent use.
type Aggregator struct {
	total     int
	accepted  int
	rejected  int
	scores    []float64
	byKind    map[string]int
	attempts  int
	successes int
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{byKind: make(map[string]int)}
}

// LogAccept records an accepted episode and its judge score.
func (a *Aggregator) LogAccept(score float64) {
	a.total++
	a.accepted++
	a.scores = append(a.scores, score)
}

// LogReject records a rejected episode without a reason.
func (a *Aggregator) LogReject() {
	a.LogRejectReason(RejectUnspecified)
}

// LogRejectReason records a rejected episode under kind.
func (a *Aggregator) LogRejectReason(kind string) {
	if kind == "" {
		kind = RejectUnspecified
	}
	a.total++
	a.rejected++
	a.byKind[kind]++
}

// LogAttempt records the outcome of a learner attempt.
func (a *Aggregator) LogAttempt(success bool) {
	a.attempts++
	if success {
		a.successes++
	}
}

// Summary reports the current totals. Rates are 0 when nothing was logged.
func (a *Aggregator) Summary() Summary {
	s := Summary{
		Total:         a.total,
		Accepted:      a.accepted,
		Rejected:      a.rejected,
		RejectsByKind: maps.Clone(a.byKind),
		Attempts:      a.attempts,
		Successes:     a.successes,
	}
	s.AcceptanceRate = float64(a.accepted) / float64(max(1, a.total))
	if len(a.scores) > 0 {
		var sum float64
		for _, v := range a.scores {
			sum += v
		}
		s.AverageScore = sum / float64(len(a.scores))
	}
	if a.attempts > 0 {
		s.SuccessRate = float64(a.successes) / float64(a.attempts)
	}
	return s
}

// Log writes the summary as one structured log line.
func (s Summary) Log(fields ...zap.Field) {
	fields = append(fields,
		zap.Int("total", s.Total),
		zap.Int("accepted", s.Accepted),
		zap.Int("rejected", s.Rejected),
		zap.Float64("acceptance_rate", s.AcceptanceRate),
		zap.Float64("average_score", s.AverageScore),
		zap.Any("rejects_by_kind", s.RejectsByKind),
		zap.Int("attempts", s.Attempts),
		zap.Float64("success_rate", s.SuccessRate),
	)
	zap.L().Info("run summary", fields...)
}
