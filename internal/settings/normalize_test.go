package settings

import (
	"reflect"
	"testing"
)

func TestNormalizeAppliesDefaultPollInterval(t *testing.T) {
	s := Normalize(Settings{PollIntervalSec: 0})
	if s.PollIntervalSec != defaultPollIntervalSec {
		t.Errorf("expected default poll interval, got %d", s.PollIntervalSec)
	}
}

func TestNormalizeDedupesProfileIDs(t *testing.T) {
	s := Settings{
		Profiles: []WorkspaceProfile{
			{ID: "work", Name: "Work"},
			{ID: "work", Name: "Work Again"},
		},
	}
	got := Normalize(s)
	if got.Profiles[0].ID == got.Profiles[1].ID {
		t.Errorf("expected deduped ids, got %q twice", got.Profiles[0].ID)
	}
}

func TestNormalizeDefaultsEmptyProfileName(t *testing.T) {
	s := Settings{Profiles: []WorkspaceProfile{{ID: "a"}}}
	got := Normalize(s)
	if got.Profiles[0].Name != "Untitled Profile" {
		t.Errorf("expected Untitled Profile, got %q", got.Profiles[0].Name)
	}
}

func TestNormalizeDerivesProfileIDFromName(t *testing.T) {
	s := Settings{Profiles: []WorkspaceProfile{{Name: "My Workspace"}}}
	got := Normalize(s)
	if got.Profiles[0].ID != "profile-my-workspace" {
		t.Errorf("expected profile-my-workspace, got %q", got.Profiles[0].ID)
	}
}

func TestNormalizeClearsActiveProfileWhenNoProfiles(t *testing.T) {
	s := Settings{ActiveProfileID: "stale"}
	got := Normalize(s)
	if got.ActiveProfileID != "" {
		t.Errorf("expected cleared active profile id, got %q", got.ActiveProfileID)
	}
}

func TestNormalizeFixesDanglingActiveProfile(t *testing.T) {
	s := Settings{
		Profiles:        []WorkspaceProfile{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		ActiveProfileID: "missing",
	}
	got := Normalize(s)
	if got.ActiveProfileID != "a" {
		t.Errorf("expected fallback to first profile id, got %q", got.ActiveProfileID)
	}
}

func TestNormalizeDefaultsProviderToLocal(t *testing.T) {
	s := Settings{Profiles: []WorkspaceProfile{{ID: "a", Name: "A"}}}
	got := Normalize(s)
	if got.Profiles[0].DefaultProvider != "local" {
		t.Errorf("expected local, got %q", got.Profiles[0].DefaultProvider)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	once := Normalize(Default())
	twice := Normalize(once)
	if len(once.ProviderRegistry.Providers) != len(twice.ProviderRegistry.Providers) {
		t.Fatalf("expected stable provider count across normalize calls")
	}
	for i := range once.ProviderRegistry.Providers {
		if !reflect.DeepEqual(once.ProviderRegistry.Providers[i], twice.ProviderRegistry.Providers[i]) {
			t.Errorf("expected identical provider at %d, got %+v vs %+v", i, once.ProviderRegistry.Providers[i], twice.ProviderRegistry.Providers[i])
		}
	}
}

func TestNormalizeProviderRegistryMergesUnknownProvider(t *testing.T) {
	s := Settings{ProviderRegistry: ProviderRegistry{Providers: []ProviderConfig{
		{ID: "custom-provider", Type: "WEB"},
	}}}
	got := Normalize(s)

	var found *ProviderConfig
	for i := range got.ProviderRegistry.Providers {
		if got.ProviderRegistry.Providers[i].ID == "custom-provider" {
			found = &got.ProviderRegistry.Providers[i]
		}
	}
	if found == nil {
		t.Fatal("expected custom-provider to survive normalization")
	}
	if found.Type != "web" {
		t.Errorf("expected normalized type web, got %q", found.Type)
	}
	if len(found.Capabilities) != 1 || found.Capabilities[0] != "debate" {
		t.Errorf("expected default capability [debate], got %v", found.Capabilities)
	}
	if len(got.ProviderRegistry.Providers) != 7 {
		t.Errorf("expected 6 defaults + 1 custom, got %d", len(got.ProviderRegistry.Providers))
	}
}

func TestNormalizeNotebookLmArgsFallBackWhenAllBlank(t *testing.T) {
	s := Settings{Integrations: IntegrationsSettings{NotebookLM: NotebookLmSettings{Args: []string{"  ", ""}}}}
	got := Normalize(s)
	if len(got.Integrations.NotebookLM.Args) != 1 || got.Integrations.NotebookLM.Args[0] != "kof-notebooklm-mcp" {
		t.Errorf("expected default notebooklm args, got %v", got.Integrations.NotebookLM.Args)
	}
}
