// Package providers implements the provider façade: a single complete_text
// operation fanning out across hosted HTTP providers, CLI subprocess
// providers, web-stub providers routed to a local generator, and the local
// deterministic generator itself.
package providers

import (
	"context"
	"fmt"
)

// CompletionRequest is the façade's single operation's input.
type CompletionRequest struct {
	ProviderID      string
	Model           string
	Prompt          string
	DeadlineSeconds int
	MaxTokens       int
}

// LocalContext is the debate framing the local generator (and, by routing,
// every web-stub provider) renders its canned template from. The debate
// engine builds this from its own round/role state.
type LocalContext struct {
	Role        string
	Round       string // "round1", "round2", or "round3"
	TargetRole  string
	Problem     string
	Constraints []string
	PriorClaim  string
}

const (
	defaultDeadlineSeconds = 60
	defaultMaxTokens       = 4096
)

// CompleteText dispatches provider_id to the right transport and returns
// plain text. Empty text from a hosted or CLI provider is an error; local
// and web-stub providers never fail.
func CompleteText(ctx context.Context, req CompletionRequest, local LocalContext) (string, error) {
	deadline := req.DeadlineSeconds
	if deadline <= 0 {
		deadline = defaultDeadlineSeconds
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch req.ProviderID {
	case "openai":
		return completeOpenAI(ctx, req.Model, req.Prompt, deadline, maxTokens)
	case "gemini":
		return completeGemini(ctx, req.Model, req.Prompt, deadline, maxTokens)
	case "claude":
		return completeClaude(ctx, req.Model, req.Prompt, deadline, maxTokens)
	case "codex-cli":
		return runCLIProvider(ctx, codexCLIConfig, req.Model, req.Prompt, deadline, maxTokens)
	case "gemini-cli":
		return runCLIProvider(ctx, geminiCLIConfig, req.Model, req.Prompt, deadline, maxTokens)
	case "claude-cli":
		return runCLIProvider(ctx, claudeCLIConfig, req.Model, req.Prompt, deadline, maxTokens)
	case "chatgpt-web", "gemini-web", "claude-web", "local":
		return GenerateLocal(local), nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", req.ProviderID)
	}
}
