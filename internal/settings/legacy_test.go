package settings

import "testing"

func TestMigrateLegacyPrefersClaude(t *testing.T) {
	legacy := legacyConfig{}
	legacy.Models.Claude.Enabled = true
	legacy.Models.Claude.DefaultModel = "opus"
	legacy.Models.Gemini.Enabled = true

	s := migrateLegacy(legacy)

	if s.Profiles[0].DefaultProvider != "claude-cli" {
		t.Errorf("expected claude-cli preferred, got %q", s.Profiles[0].DefaultProvider)
	}
	if s.Profiles[0].DefaultModel != "opus" {
		t.Errorf("expected opus, got %q", s.Profiles[0].DefaultModel)
	}
	if s.ActiveProfileID != "default" {
		t.Errorf("expected default active profile, got %q", s.ActiveProfileID)
	}

	for _, p := range s.ProviderRegistry.Providers {
		switch p.ID {
		case "claude-cli", "gemini-cli":
			if !p.Enabled {
				t.Errorf("expected %s enabled from legacy config", p.ID)
			}
		case "chatgpt-web":
			if p.Enabled {
				t.Errorf("expected chatgpt-web disabled, legacy GPT was off")
			}
		}
	}
}

func TestMigrateLegacyFallsBackToLocal(t *testing.T) {
	s := migrateLegacy(legacyConfig{})
	if s.Profiles[0].DefaultProvider != "local" {
		t.Errorf("expected local fallback, got %q", s.Profiles[0].DefaultProvider)
	}
}
