package debate

import (
	"context"
	"strings"
	"time"

	"kofnote/internal/providers"
)

// CompleteFunc matches providers.CompleteText's signature; injectable so
// tests can stub the façade without touching real providers/subprocesses.
type CompleteFunc func(ctx context.Context, req providers.CompletionRequest, local providers.LocalContext) (string, error)

// round2Target returns the fixed Round2 cross-examination pairing for a
// role (spec.md §4.4.4).
func round2Target(role Role) Role {
	switch role {
	case RoleProponent:
		return RoleCritic
	case RoleCritic:
		return RoleProponent
	case RoleAnalyst:
		return RoleProponent
	case RoleSynthesizer:
		return RoleCritic
	case RoleJudge:
		return RoleSynthesizer
	default:
		return ""
	}
}

// roundInstruction is the per-round framing line embedded in the prompt.
func roundInstruction(r Round) string {
	switch r {
	case Round1:
		return "Provide opening position with claim, rationale, and key risks."
	case Round2:
		return "Cross-examine your paired role: challenge their Round 1 claim, then state your own response."
	case Round3:
		return "Provide a revised position incorporating Round 2 feedback."
	default:
		return ""
	}
}

// priorContextDigest builds a one-line-per-prior-successful-turn digest,
// each line truncated to 120 chars, per spec.md §4.4.4.
func priorContextDigest(prior []RoundArtifact) string {
	var lines []string
	for _, artifact := range prior {
		for _, t := range artifact.Turns {
			if t.Status != "ok" {
				continue
			}
			lines = append(lines, string(t.Role)+"/"+string(t.Round)+": "+summarizeLine(t.Claim, 120))
		}
	}
	if len(lines) == 0 {
		return "(no prior turns)"
	}
	return strings.Join(lines, "\n")
}

func buildPrompt(role Role, req NormalizedRequest, round Round, target Role, prior []RoundArtifact) string {
	constraints := "(none)"
	if len(req.Constraints) > 0 {
		constraints = strings.Join(req.Constraints, "; ")
	}
	targetText := "(none)"
	if target != "" {
		targetText = string(target)
	}

	var b strings.Builder
	b.WriteString("You are role " + string(role) + ". Problem: " + req.Problem + "\n")
	b.WriteString("Output type: " + string(req.OutputType) + "\n")
	b.WriteString("Constraints:\n" + constraints + "\n")
	b.WriteString("Target role: " + targetText + "\n")
	b.WriteString("Round instruction: " + roundInstruction(round) + "\n")
	b.WriteString("Prior context:\n" + priorContextDigest(prior) + "\n\n")
	b.WriteString("Return concise markdown in this shape:\nClaim: ...\nRationale: ...\nRisks: ...")
	return b.String()
}

// priorClaim returns the Round1 claim from the same role, passed to the
// local generator's context on every turn.
func priorClaim(prior []RoundArtifact, role Role) string {
	for _, artifact := range prior {
		if artifact.Round != Round1 {
			continue
		}
		for _, t := range artifact.Turns {
			if t.Role == role && t.Status == "ok" {
				return t.Claim
			}
		}
	}
	return ""
}

// priorRoundTurn finds a role's successful turn in a specific round.
func priorRoundTurn(prior []RoundArtifact, round Round, role Role) (Turn, bool) {
	for _, artifact := range prior {
		if artifact.Round != round {
			continue
		}
		for _, t := range artifact.Turns {
			if t.Role == role && t.Status == "ok" {
				return t, true
			}
		}
	}
	return Turn{}, false
}

func isLocalRoute(providerID string) bool {
	return providerID == "local" || webStubProviders[providerID]
}

// runTurn executes the per-turn protocol (spec.md §4.4.4): dispatch through
// the façade (or the local generator for local/web-stub providers), extract
// claim/rationale/risks, and for Round2/Round3 attach challenges/revisions.
func runTurn(ctx context.Context, complete CompleteFunc, p Participant, round Round, req NormalizedRequest, prior []RoundArtifact) Turn {
	started := time.Now()
	target := Role("")
	if round == Round2 {
		target = round2Target(p.Role)
	}

	turn := Turn{
		Role:       p.Role,
		Round:      round,
		Provider:   p.ModelProvider,
		Model:      p.ModelName,
		TargetRole: target,
		StartedAt:  started.UTC().Format(time.RFC3339),
	}

	local := providers.LocalContext{
		Role:        string(p.Role),
		Round:       string(round),
		TargetRole:  string(target),
		Problem:     req.Problem,
		Constraints: req.Constraints,
		PriorClaim:  priorClaim(prior, p.Role),
	}

	var text string
	var err error
	if isLocalRoute(p.ModelProvider) {
		text, err = complete(ctx, providers.CompletionRequest{ProviderID: "local"}, local)
	} else {
		prompt := buildPrompt(p.Role, req, round, target, prior)
		text, err = complete(ctx, providers.CompletionRequest{
			ProviderID:      p.ModelProvider,
			Model:           p.ModelName,
			Prompt:          prompt,
			DeadlineSeconds: req.MaxTurnSeconds,
			MaxTokens:       req.MaxTurnTokens,
		}, local)
	}

	finished := time.Now()
	turn.FinishedAt = finished.UTC().Format(time.RFC3339)
	turn.DurationMs = finished.Sub(started).Milliseconds()

	if err != nil {
		turn.Status = "failed"
		turn.ErrorCode = providerErrorCode(p.ModelProvider)
		turn.ErrorMessage = err.Error()
		return turn
	}

	turn.Status = "ok"
	turn.Claim = extractClaim(text)
	turn.Rationale = strings.TrimSpace(text)
	turn.Risks = extractRisks(text)

	if round == Round2 && target != "" {
		priorTargetTurn, _ := priorRoundTurn(prior, Round1, target)
		question := string(p.Role) + " asks " + string(target) + " to defend: " + summarizeLine(priorTargetTurn.Claim, 100)
		turn.Challenges = []Challenge{{
			SourceRole: p.Role,
			TargetRole: target,
			Question:   question,
			Response:   turn.Claim,
		}}
	}

	if round == Round3 {
		if challengeTurn, ok := priorRoundTurn(prior, Round2, p.Role); ok {
			seen := map[string]bool{}
			var revisions []string
			for _, c := range challengeTurn.Challenges {
				pol := classifyPolarity(c.Response)
				key := revisionKey(c.TargetRole, pol)
				if seen[key] {
					continue
				}
				seen[key] = true
				revisions = append(revisions, "Revised after "+polarityLabel(pol)+" exchange with "+string(c.TargetRole)+": "+summarizeLine(c.Response, 100))
			}
			turn.Revisions = dedupNonEmpty(revisions)
		}
	}

	return turn
}
