// Package mastery holds a learner's mutable state: per-concept mastery, the
// misconception log, and the attempt history. State lives in memory; Save is
// the only way it reaches disk.
package mastery

import (
	"math"
	"maps"
	"slices"
	"time"

	"github.com/sells-group/tutor-cli/internal/model"
)

// Step is the mastery change applied by one attempt.
const Step = 0.1

const (
	minMastery = 0.0
	maxMastery = 1.0
)

// Store is the learner model. It is not safe for concurrent use; the episode
// loop is its only writer.
type Store struct {
	mastery        map[string]float64
	misconceptions []string
	history        []model.AttemptRecord

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp attempt records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// New creates an empty learner model.
func New(opts ...Option) *Store {
	s := &Store{
		mastery:        make(map[string]float64),
		misconceptions: []string{},
		history:        []model.AttemptRecord{},
		nowFunc:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mastery returns the mastery of a concept; unseen concepts are 0.0.
func (s *Store) Mastery(concept string) float64 {
	return s.mastery[concept]
}

// MasteryState returns a copy of the mastery map.
func (s *Store) MasteryState() map[string]float64 {
	return maps.Clone(s.mastery)
}

// Misconceptions returns a copy of the misconception log in observation order.
func (s *Store) Misconceptions() []string {
	return slices.Clone(s.misconceptions)
}

// History returns a copy of the attempt history, oldest first.
func (s *Store) History() []model.AttemptRecord {
	return slices.Clone(s.history)
}

// HasMisconception reports whether label is already logged.
func (s *Store) HasMisconception(label string) bool {
	return slices.Contains(s.misconceptions, label)
}

// RecordAttempt applies the outcome of one attempt. Success raises mastery by
// Step and failure lowers it, both clamped to [0, 1]. On failure a non-empty
// errorLabel not yet seen is appended to the misconception log. Exactly one
// history record is appended per call.
func (s *Store) RecordAttempt(concept string, success bool, errorLabel string) {
	m := s.mastery[concept]
	if success {
		m = math.Min(maxMastery, round(m+Step))
	} else {
		m = math.Max(minMastery, round(m-Step))
		if errorLabel != "" && !s.HasMisconception(errorLabel) {
			s.misconceptions = append(s.misconceptions, errorLabel)
		}
	}
	s.mastery[concept] = m

	rec := model.AttemptRecord{
		Concept:   concept,
		Success:   success,
		Timestamp: s.nowFunc().UTC(),
	}
	if errorLabel != "" {
		label := errorLabel
		rec.Error = &label
	}
	s.history = append(s.history, rec)
}

// round trims accumulated float error so repeated steps land on exact
// tenths.
func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
