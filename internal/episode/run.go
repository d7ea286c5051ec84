package episode

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/metrics"
)

// Report summarises a multi-episode run.
type Report struct {
	RunID     string             `json:"run_id"`
	Requested int                `json:"requested"`
	Completed int                `json:"completed"`
	Stopped   bool               `json:"stopped"`
	Summary   metrics.Summary    `json:"summary"`
	Mastery   map[string]float64 `json:"mastery"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
}

// step runs one episode of a loop and reports whether it found a concept.
type step func(ctx context.Context, index int) (noConcept bool)

// Run executes up to episodes full episodes. A stop request on ctx is honoured
// between episodes; the episode in flight completes. The snapshot is saved
// every save-every episodes and always once at the end.
func (r *Runner) Run(ctx context.Context, episodes int) (*Report, error) {
	return r.loop(ctx, "experiment", episodes, func(ctx context.Context, index int) bool {
		res := r.RunEpisode(ctx, index)
		return errors.Is(res.Err, apperr.ErrNoAvailableConcept)
	})
}

// Simulate is the offline loop: decide, attempt, update. No exercise is
// generated or judged, so only the attempt counters of the summary move.
func (r *Runner) Simulate(ctx context.Context, episodes int) (*Report, error) {
	return r.loop(ctx, "simulate", episodes, func(ctx context.Context, index int) bool {
		log := r.logger(index)
		decision, err := r.policy.Decide(r.graph, r.store)
		if err != nil {
			log.Warn("no available concept", zap.Error(err))
			return true
		}
		var res Result
		r.attempt(log.With(zap.String("concept", decision.Concept)), &res, decision.Concept)
		return false
	})
}

func (r *Runner) loop(ctx context.Context, mode string, episodes int, run step) (*Report, error) {
	if episodes < 1 {
		return nil, eris.Errorf("episode: episodes must be >= 1, got %d", episodes)
	}
	log := zap.L().With(zap.String("run_id", r.runID), zap.String("mode", mode))
	log.Info("run starting", zap.Int("episodes", episodes))

	start := time.Now()
	report := &Report{RunID: r.runID, Requested: episodes}
	var runErr error
	noConcept := 0

	for i := 1; i <= episodes; i++ {
		if ctx.Err() != nil {
			report.Stopped = true
			log.Info("stop requested, ending run", zap.Int("completed", report.Completed))
			break
		}

		if run(context.WithoutCancel(ctx), i) {
			noConcept++
		} else {
			noConcept = 0
		}
		report.Completed++

		if r.maxNoConcept > 0 && noConcept >= r.maxNoConcept {
			runErr = eris.Wrapf(apperr.ErrNoAvailableConcept,
				"episode: aborting after %d consecutive episodes without a concept", noConcept)
			break
		}
		if r.saveEvery > 0 && i%r.saveEvery == 0 && i < episodes {
			if err := r.Save(); err != nil {
				runErr = err
				break
			}
		}
	}

	if err := r.Save(); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			log.Error("final save failed", zap.Error(err))
		}
	}

	report.Summary = r.metrics.Summary()
	report.Mastery = r.store.MasteryState()
	report.Elapsed = time.Since(start)
	report.Summary.Log(
		zap.String("run_id", r.runID),
		zap.String("mode", mode),
		zap.Int("completed", report.Completed),
		zap.Bool("stopped", report.Stopped),
	)
	return report, runErr
}
