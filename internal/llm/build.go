package llm

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/config"
	"github.com/sells-group/tutor-cli/internal/resilience"
	"github.com/sells-group/tutor-cli/pkg/anthropic"
	"github.com/sells-group/tutor-cli/pkg/ollama"
)

// Collaborators are the configured generator and judge.
type Collaborators struct {
	Generator *Generator
	Judge     *Judge
}

// NewCollaborators builds the generator and judge described by cfg. Each
// gets its own guard, so a failing judge cannot open the generator's breaker.
func NewCollaborators(cfg *config.Config) (*Collaborators, error) {
	gen, err := newCompleter(cfg, cfg.Generator, ServiceGenerator)
	if err != nil {
		return nil, err
	}
	judge, err := newCompleter(cfg, cfg.Judge, ServiceJudge)
	if err != nil {
		return nil, err
	}
	return &Collaborators{
		Generator: NewGenerator(gen, settingsFrom(cfg.Generator)),
		Judge:     NewJudge(judge, settingsFrom(cfg.Judge)),
	}, nil
}

func newCompleter(cfg *config.Config, cc config.CollaboratorConfig, service string) (Completer, error) {
	var base Completer
	switch cc.Provider {
	case config.ProviderOllama:
		base = NewOllamaCompleter(ollama.NewClient(
			ollama.WithBaseURL(cc.BaseURL),
			ollama.WithModel(cc.Model),
		))
	case config.ProviderAnthropic:
		var opts []anthropic.Option
		if cc.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cc.BaseURL))
		}
		base = NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key, opts...), service)
	default:
		return nil, eris.Errorf("llm: %s: unknown provider %q", service, cc.Provider)
	}

	guard := resilience.NewGuard(service,
		resilience.WithRetry(retryFrom(cfg.Retry, service)),
		resilience.WithBreaker(resilience.BreakerConfig{
			FailureThreshold: cfg.Circuit.FailureThreshold,
			ResetTimeout:     time.Duration(cfg.Circuit.ResetTimeoutSecs) * time.Second,
			ShouldTrip:       resilience.IsTransient,
		}),
		resilience.WithRateLimit(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst),
		resilience.WithTimeout(cc.Timeout()),
	)
	return NewGuardedCompleter(base, guard), nil
}

func retryFrom(rc config.RetryConfig, service string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if rc.MaxAttempts > 0 {
		cfg.MaxAttempts = rc.MaxAttempts
	}
	if rc.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(rc.InitialBackoffMs) * time.Millisecond
	}
	if rc.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(rc.MaxBackoffMs) * time.Millisecond
	}
	if rc.Multiplier > 0 {
		cfg.Multiplier = rc.Multiplier
	}
	if rc.JitterFraction >= 0 {
		cfg.JitterFraction = rc.JitterFraction
	}
	cfg.OnRetry = resilience.RetryLogger(service, "complete")
	return cfg
}

func settingsFrom(cc config.CollaboratorConfig) Settings {
	s := Settings{
		Model:       cc.Model,
		Temperature: ollama.Float(cc.Temperature),
		MaxTokens:   cc.MaxTokens,
	}
	if cc.TopP > 0 {
		s.TopP = ollama.Float(cc.TopP)
	}
	return s
}
