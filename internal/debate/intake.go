package debate

import (
	"strings"

	"kofnote/internal/settings"
)

// providerAliases canonicalizes a handful of shorthand provider names to
// the registry's canonical ids, per spec.md §4.4.2.
var providerAliases = map[string]string{
	"codex":   "codex-cli",
	"chatgpt": "chatgpt-web",
}

// webStubProviders are treated as unavailable in-process; turns addressed
// to them are routed through the local generator (spec.md §9 open
// question: kept explicit and gated on provider type).
var webStubProviders = map[string]bool{
	"chatgpt-web": true,
	"gemini-web":  true,
	"claude-web":  true,
}

// hostedProviders are the Provider Façade's three hosted HTTPS providers
// (spec.md §4.3). They are always "known" even though the settings
// registry's six defaults (internal/settings/types.go) never list them —
// the registry is consulted only to honor an explicit user disable, never
// to decide existence, mirroring original_source/kofnote-app's
// normalize_debate_provider early return for these three ids. Without this
// special case, a hosted provider with no registry entry would be
// indistinguishable from an unknown one and get force-downgraded to
// local, which can never fail a turn.
var hostedProviders = map[string]bool{
	"openai": true,
	"gemini": true,
	"claude": true,
}

func canonicalProviderID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := providerAliases[id]; ok {
		return alias
	}
	return id
}

func parseRole(raw string) (Role, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range Roles {
		if strings.ToLower(string(r)) == norm {
			return r, true
		}
	}
	return "", false
}

// registryLookup abstracts the provider registry so Normalize doesn't need
// to import settings.Settings directly in its signature; kept as a plain
// map keyed by provider id to stay test-friendly.
type registryLookup struct {
	byID map[string]settings.ProviderConfig
}

func newRegistryLookup(reg settings.ProviderRegistry) registryLookup {
	m := make(map[string]settings.ProviderConfig, len(reg.Providers))
	for _, p := range reg.Providers {
		m[p.ID] = p
	}
	return registryLookup{byID: m}
}

func (r registryLookup) enabled(id string) (settings.ProviderConfig, bool) {
	cfg, ok := r.byID[id]
	if !ok {
		return settings.ProviderConfig{}, false
	}
	return cfg, cfg.Enabled
}

func (r registryLookup) known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Normalize validates and defaults a caller-supplied Request into a
// NormalizedRequest, emitting warnings for dropped/substituted
// participants. Returns DEBATE_ERR_INPUT for invalid problem/output_type.
func Normalize(req Request, registry settings.ProviderRegistry) (NormalizedRequest, []string, error) {
	var warnings []string

	problem := strings.TrimSpace(req.Problem)
	if problem == "" {
		return NormalizedRequest{}, nil, newErr(ErrInput, "problem must not be empty")
	}

	outputType, ok := validOutputType(strings.ToLower(strings.TrimSpace(req.OutputType)))
	if !ok {
		return NormalizedRequest{}, nil, newErr(ErrInput, "output_type %q is not one of decision|writing|architecture|planning|evaluation", req.OutputType)
	}

	maxTurnSeconds := req.MaxTurnSeconds
	if maxTurnSeconds == 0 {
		maxTurnSeconds = defaultMaxTurnSeconds
	}
	maxTurnSeconds = clampInt(maxTurnSeconds, minMaxTurnSeconds, maxMaxTurnSeconds)

	maxTurnTokens := req.MaxTurnTokens
	if maxTurnTokens == 0 {
		maxTurnTokens = defaultMaxTurnTokens
	}
	maxTurnTokens = clampInt(maxTurnTokens, minMaxTurnTokens, maxMaxTurnTokens)

	lookup := newRegistryLookup(registry)

	byRole := make(map[Role]Participant, len(Roles))
	for _, ip := range req.Participants {
		role, ok := parseRole(ip.Role)
		if !ok {
			warnings = append(warnings, WarnUnknownRoleIgnored)
			continue
		}
		if _, already := byRole[role]; already {
			// first occurrence wins
			continue
		}

		providerInput := strings.ToLower(strings.TrimSpace(ip.ModelProvider))
		canonical := canonicalProviderID(providerInput)

		participant := Participant{Role: role, ModelProvider: canonical, ModelName: strings.TrimSpace(ip.ModelName)}

		if canonical == "" || canonical == "local" {
			participant.ModelProvider = "local"
			if participant.ModelName == "" {
				participant.ModelName = "local-heuristic-v1"
			}
			byRole[role] = participant
			continue
		}

		if webStubProviders[canonical] {
			// Web providers are valid registry entries routed to the
			// local stub at turn time; no substitution/warning needed.
			if participant.ModelName == "" {
				participant.ModelName = canonical
			}
			byRole[role] = participant
			continue
		}

		if hostedProviders[canonical] {
			if cfg, registered := lookup.byID[canonical]; registered && !cfg.Enabled {
				warnings = append(warnings, WarnProviderDisabledFallbackLocal)
				participant.ModelProvider = "local"
				participant.ModelName = "local-heuristic-v1"
			} else {
				if canonical != providerInput && providerInput != "" {
					warnings = append(warnings, WarnProviderNormalized)
				}
				if participant.ModelName == "" {
					participant.ModelName = canonical
				}
			}
			byRole[role] = participant
			continue
		}

		cfg, enabled := lookup.enabled(canonical)
		known := lookup.known(canonical)
		switch {
		case !known:
			warnings = append(warnings, WarnProviderUnknownFallbackLocal)
			participant.ModelProvider = "local"
			participant.ModelName = "local-heuristic-v1"
		case !enabled:
			warnings = append(warnings, WarnProviderDisabledFallbackLocal)
			participant.ModelProvider = "local"
			participant.ModelName = "local-heuristic-v1"
		default:
			_ = cfg
			if canonical != providerInput && providerInput != "" {
				warnings = append(warnings, WarnProviderNormalized)
			}
			if participant.ModelName == "" {
				participant.ModelName = canonical
			}
		}
		byRole[role] = participant
	}

	participants := make([]Participant, 0, len(Roles))
	for _, role := range Roles {
		if p, ok := byRole[role]; ok {
			participants = append(participants, p)
			continue
		}
		participants = append(participants, Participant{
			Role:          role,
			ModelProvider: "local",
			ModelName:     "local-heuristic-v1",
		})
	}

	constraints := make([]string, 0, len(req.Constraints))
	for _, c := range req.Constraints {
		c = strings.TrimSpace(c)
		if c != "" {
			constraints = append(constraints, c)
		}
	}

	return NormalizedRequest{
		Problem:             problem,
		Constraints:         constraints,
		OutputType:          outputType,
		Participants:        participants,
		MaxTurnSeconds:      maxTurnSeconds,
		MaxTurnTokens:       maxTurnTokens,
		WritebackRecordType: strings.ToLower(strings.TrimSpace(req.WritebackRecordType)),
		DueOverrides:        req.DueOverrides,
	}, warnings, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
