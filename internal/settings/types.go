// Package settings implements the process-wide configuration store:
// workspace profiles, the provider registry, and integration settings,
// persisted as settings.json under the OS config directory and overridable
// through KOFNOTE_-prefixed environment variables.
package settings

// WorkspaceProfile names one workspace a user can switch between.
type WorkspaceProfile struct {
	ID              string `json:"id" mapstructure:"id"`
	Name            string `json:"name" mapstructure:"name"`
	CentralHome     string `json:"centralHome" mapstructure:"centralHome"`
	DefaultProvider string `json:"defaultProvider" mapstructure:"defaultProvider"`
	DefaultModel    string `json:"defaultModel" mapstructure:"defaultModel"`
}

// NotionSettings gates the Notion-like remote sync integration.
type NotionSettings struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	DatabaseID string `json:"databaseId" mapstructure:"databaseId"`
}

// NotebookLmSettings configures the external notebook-service subprocess.
// Only its call contract is referenced here; the subprocess itself is
// external to this system.
type NotebookLmSettings struct {
	Command           string   `json:"command" mapstructure:"command"`
	Args              []string `json:"args" mapstructure:"args"`
	DefaultNotebookID string   `json:"defaultNotebookId" mapstructure:"defaultNotebookId"`
}

// IntegrationsSettings groups the two external integration blocks.
type IntegrationsSettings struct {
	Notion     NotionSettings     `json:"notion" mapstructure:"notion"`
	NotebookLM NotebookLmSettings `json:"notebooklm" mapstructure:"notebooklm"`
}

// ProviderConfig is one entry in the provider registry.
type ProviderConfig struct {
	ID           string   `json:"id" mapstructure:"id"`
	Type         string   `json:"type" mapstructure:"type"` // "cli" | "web"
	Enabled      bool     `json:"enabled" mapstructure:"enabled"`
	Capabilities []string `json:"capabilities" mapstructure:"capabilities"`
}

// ProviderRegistry is the full set of registered providers.
type ProviderRegistry struct {
	Providers []ProviderConfig `json:"providers" mapstructure:"providers"`
}

// Settings is the full persisted configuration shape.
type Settings struct {
	Profiles         []WorkspaceProfile     `json:"profiles" mapstructure:"profiles"`
	ActiveProfileID  string                 `json:"activeProfileId" mapstructure:"activeProfileId"`
	PollIntervalSec  int                    `json:"pollIntervalSec" mapstructure:"pollIntervalSec"`
	UIPreferences    map[string]any         `json:"uiPreferences" mapstructure:"uiPreferences"`
	Integrations     IntegrationsSettings   `json:"integrations" mapstructure:"integrations"`
	ProviderRegistry ProviderRegistry       `json:"providerRegistry" mapstructure:"providerRegistry"`
}

const defaultPollIntervalSec = 8
const defaultNotebookLmCommand = "uvx"

var defaultNotebookLmArgs = []string{"kof-notebooklm-mcp"}

// defaultProviderConfigs is the fixed six-provider registry seed: three CLI
// subprocess transports and three web-automation stand-ins, each enabled by
// default with a capability set matching its transport family.
func defaultProviderConfigs() []ProviderConfig {
	cliCaps := []string{"debate", "cli-execution", "structured-output"}
	webCaps := []string{"debate", "web-automation", "structured-output"}
	return []ProviderConfig{
		{ID: "codex-cli", Type: "cli", Enabled: true, Capabilities: cliCaps},
		{ID: "gemini-cli", Type: "cli", Enabled: true, Capabilities: cliCaps},
		{ID: "claude-cli", Type: "cli", Enabled: true, Capabilities: cliCaps},
		{ID: "chatgpt-web", Type: "web", Enabled: true, Capabilities: webCaps},
		{ID: "gemini-web", Type: "web", Enabled: true, Capabilities: webCaps},
		{ID: "claude-web", Type: "web", Enabled: true, Capabilities: webCaps},
	}
}

// Default returns the zero-configuration settings value: no profiles, the
// default poll interval, and the six-provider registry seed.
func Default() Settings {
	return Settings{
		Profiles:        nil,
		ActiveProfileID: "",
		PollIntervalSec: defaultPollIntervalSec,
		UIPreferences:   map[string]any{},
		Integrations: IntegrationsSettings{
			Notion: NotionSettings{},
			NotebookLM: NotebookLmSettings{
				Command: defaultNotebookLmCommand,
				Args:    append([]string(nil), defaultNotebookLmArgs...),
			},
		},
		ProviderRegistry: ProviderRegistry{Providers: defaultProviderConfigs()},
	}
}
