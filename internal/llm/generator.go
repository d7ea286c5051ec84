package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/tutor-cli/internal/apperr"
)

// Service names used in errors, logs, and guards.
const (
	ServiceGenerator = "generator"
	ServiceJudge     = "judge"
)

// Settings are the sampling parameters of one collaborator.
type Settings struct {
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   int
}

// Generator produces raw exercise text for a decision.
type Generator struct {
	completer Completer
	settings  Settings
}

// NewGenerator creates a generator backed by completer.
func NewGenerator(completer Completer, settings Settings) *Generator {
	return &Generator{completer: completer, settings: settings}
}

// Generate asks the model for an exercise. The returned text is untrusted
// and must go through the verifier. Failures are *apperr.ExternalError.
func (g *Generator) Generate(ctx context.Context, in PromptInput) (string, error) {
	prompt, err := ExercisePrompt(in)
	if err != nil {
		return "", err
	}

	start := time.Now()
	raw, err := g.completer.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		Model:       g.settings.Model,
		Temperature: g.settings.Temperature,
		TopP:        g.settings.TopP,
		MaxTokens:   g.settings.MaxTokens,
	})
	if err != nil {
		return "", apperr.External(ServiceGenerator, err)
	}

	zap.L().Debug("exercise generated",
		zap.String("concept", in.ConceptID),
		zap.Int("difficulty", in.Difficulty),
		zap.Int("response_bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return raw, nil
}
