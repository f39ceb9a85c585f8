package providers

import (
	"context"
	"strings"
	"testing"
)

func TestCompleteTextRoutesWebProvidersToLocal(t *testing.T) {
	for _, provider := range []string{"chatgpt-web", "gemini-web", "claude-web", "local"} {
		text, err := CompleteText(context.Background(), CompletionRequest{ProviderID: provider}, LocalContext{Role: "Analyst", Round: "round1", Problem: "test"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provider, err)
		}
		if !strings.HasPrefix(text, "Claim:") {
			t.Errorf("%s: expected canned claim text, got %q", provider, text)
		}
	}
}

func TestCompleteTextUnsupportedProvider(t *testing.T) {
	_, err := CompleteText(context.Background(), CompletionRequest{ProviderID: "carrier-pigeon"}, LocalContext{})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestCompleteTextHostedProviderMissingAPIKeyFailsFast(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := CompleteText(context.Background(), CompletionRequest{ProviderID: "openai", Model: "gpt-5"}, LocalContext{})
	if err == nil {
		t.Fatal("expected error when no API key is configured")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 502, 503, 504} {
		if !isRetryableStatus(code) {
			t.Errorf("expected %d to be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 500} {
		if isRetryableStatus(code) {
			t.Errorf("expected %d to not be retryable", code)
		}
	}
}
