// Package llm talks to the two external collaborators of an episode: the
// exercise generator and the quality judge.
package llm

import (
	"context"
	"errors"

	"github.com/sells-group/tutor-cli/internal/resilience"
	"github.com/sells-group/tutor-cli/pkg/anthropic"
	"github.com/sells-group/tutor-cli/pkg/ollama"
)

// CompletionRequest is a single-prompt completion.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   int
}

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OllamaCompleter completes prompts with an Ollama server.
type OllamaCompleter struct {
	client ollama.Client
}

// NewOllamaCompleter wraps an Ollama client.
func NewOllamaCompleter(client ollama.Client) *OllamaCompleter {
	return &OllamaCompleter{client: client}
}

// Complete implements Completer.
func (c *OllamaCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	opts := &ollama.Options{Temperature: req.Temperature, TopP: req.TopP}
	if req.MaxTokens > 0 {
		opts.NumPredict = ollama.Int(req.MaxTokens)
	}
	resp, err := c.client.Generate(ctx, ollama.GenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Options: opts,
	})
	if err != nil {
		var se *ollama.StatusError
		if errors.As(err, &se) && resilience.IsTransientStatus(se.StatusCode) {
			return "", resilience.NewTransientError(err, se.StatusCode)
		}
		return "", err
	}
	return resp.Response, nil
}

// AnthropicCompleter completes prompts with the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	role   string
}

// NewAnthropicCompleter wraps an Anthropic client. role labels usage logs.
func NewAnthropicCompleter(client anthropic.Client, role string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, role: role}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		if code, ok := anthropic.StatusCode(err); ok && resilience.IsTransientStatus(code) {
			return "", resilience.NewTransientError(err, code)
		}
		return "", err
	}
	resp.Usage.Log(req.Model, c.role)
	return resp.Text(), nil
}

// GuardedCompleter runs every completion through a resilience.Guard.
type GuardedCompleter struct {
	next  Completer
	guard *resilience.Guard
}

// NewGuardedCompleter wraps next with guard.
func NewGuardedCompleter(next Completer, guard *resilience.Guard) *GuardedCompleter {
	return &GuardedCompleter{next: next, guard: guard}
}

// Complete implements Completer.
func (c *GuardedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return resilience.Call(ctx, c.guard, func(ctx context.Context) (string, error) {
		return c.next.Complete(ctx, req)
	})
}
