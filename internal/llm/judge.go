package llm

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/model"
)

// Judge scores the pedagogical quality of accepted exercises.
type Judge struct {
	completer Completer
	settings  Settings
}

// NewJudge creates a judge backed by completer.
func NewJudge(completer Completer, settings Settings) *Judge {
	return &Judge{completer: completer, settings: settings}
}

// judgeResponse mirrors the judge output. Scores are decoded as numbers so a
// model answering 4.0 instead of 4 still parses.
type judgeResponse struct {
	PedagogicalClarity      *float64 `json:"pedagogical_clarity"`
	LevelAppropriateness    *float64 `json:"level_appropriateness"`
	MathematicalCorrectness *float64 `json:"mathematical_correctness"`
	OverallScore            *float64 `json:"overall_score"`
	Feedback                string   `json:"feedback"`
}

// Evaluate asks the judge for an evaluation of ex. Transport failures,
// unparsable output, and output without overall_score are all
// *apperr.ExternalError; the latter two carry the raw output.
func (j *Judge) Evaluate(ctx context.Context, ex model.Exercise) (model.Evaluation, error) {
	prompt, err := JudgePrompt(ex)
	if err != nil {
		return model.Evaluation{}, err
	}

	raw, err := j.completer.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		Model:       j.settings.Model,
		Temperature: j.settings.Temperature,
		TopP:        j.settings.TopP,
		MaxTokens:   j.settings.MaxTokens,
	})
	if err != nil {
		return model.Evaluation{}, apperr.External(ServiceJudge, err)
	}
	return ParseEvaluation(raw)
}

// ParseEvaluation decodes raw judge output.
func ParseEvaluation(raw string) (model.Evaluation, error) {
	var resp judgeResponse
	if err := json.Unmarshal([]byte(trimFence(raw)), &resp); err != nil {
		return model.Evaluation{}, &apperr.ExternalError{
			Service: ServiceJudge,
			Raw:     raw,
			Err:     eris.Wrap(err, "invalid JSON from judge"),
		}
	}
	if resp.OverallScore == nil {
		return model.Evaluation{}, &apperr.ExternalError{
			Service: ServiceJudge,
			Raw:     raw,
			Err:     eris.New("judge output has no overall_score"),
		}
	}
	return model.Evaluation{
		PedagogicalClarity:      score(resp.PedagogicalClarity),
		LevelAppropriateness:    score(resp.LevelAppropriateness),
		MathematicalCorrectness: score(resp.MathematicalCorrectness),
		OverallScore:            *resp.OverallScore,
		Feedback:                resp.Feedback,
	}, nil
}

func score(v *float64) int {
	if v == nil {
		return 0
	}
	return int(math.Round(*v))
}

// trimFence drops a markdown code fence around the payload.
func trimFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		// Same-line fence; drop a language tag such as "json".
		s = strings.TrimLeftFunc(s, unicode.IsLetter)
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
