package settings

// legacyModelConfig mirrors one model block of the pre-kofnote config.yaml
// format (provider CLI path, API key, default model, enabled flag).
type legacyModelConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CLIPath      string `yaml:"cli_path,omitempty"`
	APIKey       string `yaml:"api_key,omitempty"`
	DefaultModel string `yaml:"default_model,omitempty"`
}

// legacyConfig mirrors the full pre-kofnote config.yaml shape, read once on
// first run when no settings.json exists yet.
type legacyConfig struct {
	Models struct {
		Claude legacyModelConfig `yaml:"claude"`
		Gemini legacyModelConfig `yaml:"gemini"`
		GPT    legacyModelConfig `yaml:"gpt"`
		Grok   legacyModelConfig `yaml:"grok"`
	} `yaml:"models"`
	Defaults struct {
		AutoDebate       bool `yaml:"auto_debate"`
		ConsensusTimeout int  `yaml:"consensus_timeout"`
		ModelTimeout     int  `yaml:"model_timeout"`
		RetryAttempts    int  `yaml:"retry_attempts"`
		RetryDelay       int  `yaml:"retry_delay"`
	} `yaml:"defaults"`
}

// migrateLegacy maps the old per-model enable/CLI-path/default-model config
// into the new provider registry and a single seeded workspace profile, so
// a prior installation's preferences survive the one-time upgrade.
func migrateLegacy(legacy legacyConfig) Settings {
	s := Default()

	setEnabled := func(id string, enabled bool) {
		for i := range s.ProviderRegistry.Providers {
			if s.ProviderRegistry.Providers[i].ID == id {
				s.ProviderRegistry.Providers[i].Enabled = enabled
			}
		}
	}
	setEnabled("claude-cli", legacy.Models.Claude.Enabled)
	setEnabled("gemini-cli", legacy.Models.Gemini.Enabled)
	setEnabled("chatgpt-web", legacy.Models.GPT.Enabled)

	defaultProvider, defaultModel := "local", "gpt-4.1-mini"
	switch {
	case legacy.Models.Claude.Enabled:
		defaultProvider = "claude-cli"
		defaultModel = firstNonEmpty(legacy.Models.Claude.DefaultModel, "opus")
	case legacy.Models.Gemini.Enabled:
		defaultProvider = "gemini-cli"
		defaultModel = firstNonEmpty(legacy.Models.Gemini.DefaultModel, "gemini-2.5-pro")
	case legacy.Models.GPT.Enabled:
		defaultProvider = "chatgpt-web"
		defaultModel = firstNonEmpty(legacy.Models.GPT.DefaultModel, "gpt-4.1-mini")
	}

	s.Profiles = []WorkspaceProfile{{
		ID:              "default",
		Name:            "Default",
		DefaultProvider: defaultProvider,
		DefaultModel:    defaultModel,
	}}
	s.ActiveProfileID = "default"

	return Normalize(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
