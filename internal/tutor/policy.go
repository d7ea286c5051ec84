// Package tutor implements the rule-based selection policy: which concept to
// practise next, at which difficulty, and which misconceptions to target.
package tutor

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/graph"
	"github.com/sells-group/tutor-cli/internal/model"
)

// Difficulty band lower bounds (inclusive).
const (
	standardFrom    = 0.4
	challengingFrom = 0.7
)

// Learner is the read side of the learner model the policy needs.
type Learner interface {
	MasteryState() map[string]float64
	Misconceptions() []string
}

// Policy chooses the next concept.
type Policy struct {
	threshold float64
}

// Option configures a Policy.
type Option func(*Policy)

// WithThreshold overrides graph.DefaultThreshold.
func WithThreshold(th float64) Option {
	return func(p *Policy) {
		p.threshold = th
	}
}

// NewPolicy creates a policy with the default threshold.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		threshold: graph.DefaultThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Difficulty maps mastery to a difficulty level: below 0.4 is 1, from 0.4
// up to (not including) 0.7 is 2, and 0.7 or more is 3.
func Difficulty(mastery float64) int {
	switch {
	case mastery < standardFrom:
		return model.DifficultyEasy
	case mastery < challengingFrom:
		return model.DifficultyStandard
	default:
		return model.DifficultyChallenging
	}
}

// Decide returns the decision for the next episode. Among available concepts
// the least mastered one wins, and ties go to the one declared first.
func (p *Policy) Decide(g *graph.Graph, learner Learner) (model.Decision, error) {
	mastery := learner.MasteryState()
	available := g.AvailableConcepts(mastery, p.threshold)

	if len(available) == 0 {
		// A non-empty acyclic graph always has a root, so this only happens
		// for an empty graph. There is no fallback: the caller decides.
		return model.Decision{}, eris.Wrapf(apperr.ErrNoAvailableConcept,
			"tutor: no concept has all prerequisites at mastery >= %.2f", p.threshold)
	}

	concept := available[0]
	for _, id := range available[1:] {
		// Strict less-than keeps the first-declared concept on ties.
		if mastery[id] < mastery[concept] {
			concept = id
		}
	}

	vocab, err := g.CommonErrors(concept)
	if err != nil {
		return model.Decision{}, err
	}

	return model.Decision{
		Concept:      concept,
		Difficulty:   Difficulty(mastery[concept]),
		TargetErrors: targetErrors(learner.Misconceptions(), vocab),
	}, nil
}

// targetErrors keeps the learner's misconceptions, in log order, that belong
// to the concept's vocabulary.
func targetErrors(logged, vocab []string) []string {
	out := []string{}
	for _, label := range logged {
		if slices.Contains(vocab, label) {
			out = append(out, label)
		}
	}
	return out
}

// Threshold returns the eligibility threshold the policy applies.
func (p *Policy) Threshold() float64 {
	return p.threshold
}
