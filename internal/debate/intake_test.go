package debate

import (
	"testing"

	"kofnote/internal/settings"
)

func defaultRegistry() settings.ProviderRegistry {
	return settings.Default().ProviderRegistry
}

func TestNormalizeRejectsEmptyProblem(t *testing.T) {
	_, _, err := Normalize(Request{Problem: "", OutputType: "decision"}, defaultRegistry())
	if err == nil {
		t.Fatal("expected error for empty problem")
	}
	ce, ok := err.(*CodedError)
	if !ok || ce.Code != ErrInput {
		t.Fatalf("expected %s, got %v", ErrInput, err)
	}
}

func TestNormalizeRejectsBadOutputType(t *testing.T) {
	_, _, err := Normalize(Request{Problem: "x", OutputType: "nonsense"}, defaultRegistry())
	if err == nil {
		t.Fatal("expected error for bad output_type")
	}
}

func TestNormalizeFillsAllFiveRoles(t *testing.T) {
	norm, _, err := Normalize(Request{Problem: "choose a path", OutputType: "Decision"}, defaultRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(norm.Participants) != 5 {
		t.Fatalf("expected 5 participants, got %d", len(norm.Participants))
	}
	for i, role := range Roles {
		if norm.Participants[i].Role != role {
			t.Fatalf("participant %d: expected role %s, got %s", i, role, norm.Participants[i].Role)
		}
		if norm.Participants[i].ModelProvider != "local" {
			t.Fatalf("expected local fallback, got %s", norm.Participants[i].ModelProvider)
		}
	}
}

func TestNormalizeUnknownRoleIgnoredWithWarning(t *testing.T) {
	_, warnings, err := Normalize(Request{
		Problem:    "x",
		OutputType: "decision",
		Participants: []InputParticipant{
			{Role: "Wizard", ModelProvider: "local"},
		},
	}, defaultRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(warnings, WarnUnknownRoleIgnored) {
		t.Fatalf("expected unknown-role warning, got %v", warnings)
	}
}

func TestNormalizeProviderAliasNormalized(t *testing.T) {
	norm, warnings, err := Normalize(Request{
		Problem:    "x",
		OutputType: "decision",
		Participants: []InputParticipant{
			{Role: "proponent", ModelProvider: "codex", ModelName: "gpt-5-codex"},
		},
	}, defaultRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.Participants[0].ModelProvider != "codex-cli" {
		t.Fatalf("expected codex-cli, got %s", norm.Participants[0].ModelProvider)
	}
	if !contains(warnings, WarnProviderNormalized) {
		t.Fatalf("expected normalized warning, got %v", warnings)
	}
}

func TestNormalizeDisabledProviderFallsBackToLocal(t *testing.T) {
	reg := defaultRegistry()
	for i := range reg.Providers {
		if reg.Providers[i].ID == "claude-cli" {
			reg.Providers[i].Enabled = false
		}
	}
	norm, warnings, err := Normalize(Request{
		Problem:    "x",
		OutputType: "decision",
		Participants: []InputParticipant{
			{Role: "Critic", ModelProvider: "claude-cli", ModelName: "claude"},
		},
	}, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.Participants[1].ModelProvider != "local" {
		t.Fatalf("expected local fallback, got %s", norm.Participants[1].ModelProvider)
	}
	if !contains(warnings, WarnProviderDisabledFallbackLocal) {
		t.Fatalf("expected disabled-fallback warning, got %v", warnings)
	}
}

func TestNormalizeUnknownProviderFallsBackToLocal(t *testing.T) {
	norm, warnings, err := Normalize(Request{
		Problem:    "x",
		OutputType: "decision",
		Participants: []InputParticipant{
			{Role: "Analyst", ModelProvider: "mystery-llm", ModelName: "v1"},
		},
	}, defaultRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.Participants[2].ModelProvider != "local" {
		t.Fatalf("expected local fallback, got %s", norm.Participants[2].ModelProvider)
	}
	if !contains(warnings, WarnProviderUnknownFallbackLocal) {
		t.Fatalf("expected unknown-fallback warning, got %v", warnings)
	}
}

func TestNormalizeClampsTurnBudgets(t *testing.T) {
	norm, _, err := Normalize(Request{
		Problem:        "x",
		OutputType:     "decision",
		MaxTurnSeconds: 99999,
		MaxTurnTokens:  1,
	}, defaultRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.MaxTurnSeconds != maxMaxTurnSeconds {
		t.Fatalf("expected clamp to %d, got %d", maxMaxTurnSeconds, norm.MaxTurnSeconds)
	}
	if norm.MaxTurnTokens != minMaxTurnTokens {
		t.Fatalf("expected clamp to %d, got %d", minMaxTurnTokens, norm.MaxTurnTokens)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
