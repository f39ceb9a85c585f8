package settings

import (
	"strings"
	"time"

	"kofnote/internal/records"
)

// Normalize applies every defaulting/dedup rule to a loaded or
// user-edited Settings value. It is idempotent: normalizing an
// already-normal value is a no-op, and it runs on both load and save.
func Normalize(s Settings) Settings {
	if s.PollIntervalSec == 0 {
		s.PollIntervalSec = defaultPollIntervalSec
	}
	if s.UIPreferences == nil {
		s.UIPreferences = map[string]any{}
	}

	seenIDs := make(map[string]bool, len(s.Profiles))
	for i := range s.Profiles {
		p := &s.Profiles[i]

		id := strings.TrimSpace(p.ID)
		if id == "" {
			id = "profile-" + records.Slugify(p.Name)
		} else {
			id = records.Slugify(id)
		}
		if id == "" || id == "untitled" {
			id = "profile-" + nowSuffix()
		}
		if seenIDs[id] {
			id = id + "-" + nowSuffix()
		}
		seenIDs[id] = true
		p.ID = id

		if strings.TrimSpace(p.Name) == "" {
			p.Name = "Untitled Profile"
		}
		p.CentralHome = strings.TrimSpace(p.CentralHome)

		provider := strings.ToLower(strings.TrimSpace(p.DefaultProvider))
		if provider == "" {
			provider = "local"
		}
		p.DefaultProvider = provider

		if strings.TrimSpace(p.DefaultModel) == "" {
			p.DefaultModel = "gpt-4.1-mini"
		}
	}

	if len(s.Profiles) == 0 {
		s.ActiveProfileID = ""
	} else {
		active := false
		for _, p := range s.Profiles {
			if p.ID == s.ActiveProfileID {
				active = true
				break
			}
		}
		if !active {
			s.ActiveProfileID = s.Profiles[0].ID
		}
	}

	s.Integrations.Notion.DatabaseID = strings.TrimSpace(s.Integrations.Notion.DatabaseID)

	command := strings.TrimSpace(s.Integrations.NotebookLM.Command)
	if command == "" {
		command = defaultNotebookLmCommand
	}
	s.Integrations.NotebookLM.Command = command

	args := trimNonEmpty(s.Integrations.NotebookLM.Args)
	if len(args) == 0 {
		args = append([]string(nil), defaultNotebookLmArgs...)
	}
	s.Integrations.NotebookLM.Args = args

	s.ProviderRegistry = normalizeProviderRegistry(s.ProviderRegistry)

	return s
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeProviderType(value string) string {
	if strings.EqualFold(strings.TrimSpace(value), "web") {
		return "web"
	}
	return "cli"
}

func normalizeCapabilities(input []string) []string {
	seen := make(map[string]bool, len(input))
	var out []string
	for _, item := range input {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return []string{"debate"}
	}
	return out
}

// normalizeProviderRegistry seeds the registry from the fixed defaults,
// overlays any user-supplied entries (matched by lowercased id), and
// returns the merged set sorted by id. Unknown providers are kept.
func normalizeProviderRegistry(registry ProviderRegistry) ProviderRegistry {
	byID := make(map[string]ProviderConfig)
	var order []string
	for _, item := range defaultProviderConfigs() {
		byID[item.ID] = item
		order = append(order, item.ID)
	}

	for _, item := range registry.Providers {
		id := strings.ToLower(strings.TrimSpace(item.ID))
		if id == "" {
			continue
		}
		defaults, hadDefault := byID[id]
		item.ID = id
		item.Type = normalizeProviderType(item.Type)
		if len(item.Capabilities) == 0 {
			if hadDefault {
				item.Capabilities = append([]string(nil), defaults.Capabilities...)
			} else {
				item.Capabilities = []string{"debate"}
			}
		}
		item.Capabilities = normalizeCapabilities(item.Capabilities)
		if _, exists := byID[id]; !exists {
			order = append(order, id)
		}
		byID[id] = item
	}

	providers := make([]ProviderConfig, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		providers = append(providers, byID[id])
	}
	sortProvidersByID(providers)

	return ProviderRegistry{Providers: providers}
}

func sortProvidersByID(providers []ProviderConfig) {
	for i := 1; i < len(providers); i++ {
		for j := i; j > 0 && providers[j].ID < providers[j-1].ID; j-- {
			providers[j], providers[j-1] = providers[j-1], providers[j]
		}
	}
}

func nowSuffix() string {
	return strings.Replace(time.Now().UTC().Format("20060102150405.000"), ".", "", 1)
}
