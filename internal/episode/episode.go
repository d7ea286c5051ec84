package episode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/llm"
	"github.com/sells-group/tutor-cli/internal/metrics"
	"github.com/sells-group/tutor-cli/internal/model"
	"github.com/sells-group/tutor-cli/internal/simulate"
	"github.com/sells-group/tutor-cli/internal/verifier"
)

// Result describes one episode. Only the stages that ran are set.
type Result struct {
	Index        int                       `json:"episode"`
	Decision     model.Decision            `json:"decision"`
	ConceptName  string                    `json:"concept_name,omitempty"`
	Verification *model.VerificationResult `json:"verification,omitempty"`
	Attempt      *model.AttemptOutcome     `json:"attempt,omitempty"`
	Evaluation   *model.Evaluation         `json:"evaluation,omitempty"`
	Accepted     bool                      `json:"accepted"`
	RejectKind   string                    `json:"reject_kind,omitempty"`
	Err          error                     `json:"-"`
}

// MasteryUpdated reports whether the episode recorded a learner attempt.
func (res Result) MasteryUpdated() bool {
	return res.Attempt != nil
}

// RunEpisode runs one episode and records its outcome in the metrics. A
// rejected episode is not an error of the run: the cause is in Result.Err.
//
// An exercise the verifier rejects never reaches the learner. A judge
// failure rejects the episode after the mastery update, which stands.
func (r *Runner) RunEpisode(ctx context.Context, index int) Result {
	log := r.logger(index)
	res := Result{Index: index}

	decision, err := r.policy.Decide(r.graph, r.store)
	if err != nil {
		return r.reject(log, res, metrics.RejectNoConcept, err)
	}
	res.Decision = decision
	log = log.With(zap.String("concept", decision.Concept), zap.Int("difficulty", decision.Difficulty))

	name, err := r.graph.ConceptName(decision.Concept)
	if err != nil {
		return r.reject(log, res, apperr.Kind(err), err)
	}
	res.ConceptName = name

	if r.generator == nil {
		return r.reject(log, res, metrics.RejectGenerator, errMissing("generator"))
	}
	raw, err := r.generator.Generate(ctx, llm.PromptInput{
		ConceptID:    decision.Concept,
		ConceptName:  name,
		Difficulty:   decision.Difficulty,
		TargetErrors: decision.TargetErrors,
	})
	if err != nil {
		return r.reject(log, res, metrics.RejectGenerator, err)
	}

	verdict := r.verifier.Verify(raw, decision.Concept)
	res.Verification = &verdict
	if !verdict.Valid {
		return r.reject(log, res, metrics.RejectValidation, verifier.AsError(verdict, decision.Concept))
	}
	if verdict.Advisory.InvalidDifficulty {
		log.Warn("exercise difficulty is not an integer between 1 and 3")
	}

	r.attempt(log, &res, decision.Concept)

	if r.judge == nil {
		return r.reject(log, res, metrics.RejectJudge, errMissing("judge"))
	}
	ev, err := r.judge.Evaluate(ctx, *verdict.Exercise)
	if err != nil {
		return r.reject(log, res, metrics.RejectJudge, err)
	}
	res.Evaluation = &ev
	res.Accepted = true
	r.metrics.LogAccept(ev.OverallScore)

	log.Info("episode accepted",
		zap.Float64("overall_score", ev.OverallScore),
		zap.Strings("matched_errors", verdict.Advisory.MatchedErrors),
	)
	return res
}

// attempt simulates the learner on concept and applies the mastery update.
func (r *Runner) attempt(log *zap.Logger, res *Result, concept string) {
	before := r.store.Mastery(concept)
	outcome := simulate.Attempt(concept, r.store, r.rng)
	r.store.RecordAttempt(concept, outcome.Success, outcome.ErrorLabel)
	r.metrics.LogAttempt(outcome.Success)
	res.Attempt = &outcome

	log.Debug("learner attempt",
		zap.Bool("success", outcome.Success),
		zap.String("error_label", outcome.ErrorLabel),
		zap.Float64("mastery_before", before),
		zap.Float64("mastery_after", r.store.Mastery(concept)),
	)
}

func (r *Runner) reject(log *zap.Logger, res Result, kind string, err error) Result {
	res.RejectKind = kind
	res.Err = err
	r.metrics.LogRejectReason(kind)

	fields := []zap.Field{zap.String("kind", kind), zap.Error(err)}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		fields = append(fields, zap.Strings("reasons", ve.Reasons))
	}
	var ee *apperr.ExternalError
	if errors.As(err, &ee) && ee.Raw != "" {
		fields = append(fields, zap.String("raw", ee.Raw))
	}
	log.Warn("episode rejected", fields...)
	return res
}
