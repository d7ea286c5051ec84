// Package episode runs the tutoring loop: decide, generate, verify, attempt,
// update, judge, and record.
package episode

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/graph"
	"github.com/sells-group/tutor-cli/internal/llm"
	"github.com/sells-group/tutor-cli/internal/mastery"
	"github.com/sells-group/tutor-cli/internal/metrics"
	"github.com/sells-group/tutor-cli/internal/model"
	"github.com/sells-group/tutor-cli/internal/simulate"
	"github.com/sells-group/tutor-cli/internal/tutor"
	"github.com/sells-group/tutor-cli/internal/verifier"
)

// DefaultMaxConsecutiveNoConcept aborts a run after this many episodes in a
// row found no available concept.
const DefaultMaxConsecutiveNoConcept = 3

// ExerciseGenerator produces raw exercise text. *llm.Generator satisfies it.
type ExerciseGenerator interface {
	Generate(ctx context.Context, in llm.PromptInput) (string, error)
}

// QualityJudge scores accepted exercises. *llm.Judge satisfies it.
type QualityJudge interface {
	Evaluate(ctx context.Context, ex model.Exercise) (model.Evaluation, error)
}

// Runner drives episodes against one knowledge graph and one learner.
type Runner struct {
	graph     *graph.Graph
	store     *mastery.Store
	policy    *tutor.Policy
	verifier  *verifier.Verifier
	generator ExerciseGenerator
	judge     QualityJudge
	rng       simulate.Source
	metrics   *metrics.Aggregator

	runID        string
	snapshotPath string
	saveEvery    int
	maxNoConcept int
}

// Option configures a Runner.
type Option func(*Runner)

// WithGenerator sets the exercise generator.
func WithGenerator(gen ExerciseGenerator) Option {
	return func(r *Runner) { r.generator = gen }
}

// WithJudge sets the quality judge.
func WithJudge(j QualityJudge) Option {
	return func(r *Runner) { r.judge = j }
}

// WithPolicy replaces the default selection policy.
func WithPolicy(p *tutor.Policy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithSource sets the randomness of the simulated learner.
func WithSource(rng simulate.Source) Option {
	return func(r *Runner) { r.rng = rng }
}

// WithSnapshotPath enables persistence of the mastery store to path. Without
// it the runner never writes.
func WithSnapshotPath(path string) Option {
	return func(r *Runner) { r.snapshotPath = path }
}

// WithSaveEvery additionally saves after every n completed episodes.
func WithSaveEvery(n int) Option {
	return func(r *Runner) { r.saveEvery = n }
}

// WithMaxConsecutiveNoConcept overrides DefaultMaxConsecutiveNoConcept. Zero
// disables the abort.
func WithMaxConsecutiveNoConcept(n int) Option {
	return func(r *Runner) { r.maxNoConcept = n }
}

// WithRunID sets the run identifier used in logs.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// New creates a runner over g and store.
func New(g *graph.Graph, store *mastery.Store, opts ...Option) *Runner {
	r := &Runner{
		graph:        g,
		store:        store,
		policy:       tutor.NewPolicy(),
		verifier:     verifier.New(g),
		metrics:      metrics.New(),
		maxNoConcept: DefaultMaxConsecutiveNoConcept,
	}
	for _, o := range opts {
		o(r)
	}
	if r.rng == nil {
		r.rng = simulate.NewSource(rand.Uint64())
	}
	if r.runID == "" {
		r.runID = uuid.New().String()
	}
	return r
}

// RunID returns the run identifier.
func (r *Runner) RunID() string { return r.runID }

// Metrics returns the aggregator the runner records into.
func (r *Runner) Metrics() *metrics.Aggregator { return r.metrics }

// Store returns the learner's mastery store.
func (r *Runner) Store() *mastery.Store { return r.store }

// Save writes the mastery snapshot when a snapshot path is configured.
func (r *Runner) Save() error {
	if r.snapshotPath == "" {
		return nil
	}
	if err := r.store.Save(r.snapshotPath); err != nil {
		return err
	}
	zap.L().Debug("snapshot saved", zap.String("run_id", r.runID), zap.String("path", r.snapshotPath))
	return nil
}

func (r *Runner) logger(index int) *zap.Logger {
	return zap.L().With(zap.String("run_id", r.runID), zap.Int("episode", index))
}

func errMissing(what string) error {
	return eris.Errorf("episode: no %s configured", what)
}
