package debate

import (
	"math"
	"strconv"
	"strings"
	"time"
)

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// allTurns flattens every round's turns in round order, participant order
// within a round.
func allTurns(rounds []RoundArtifact) []Turn {
	var out []Turn
	for _, artifact := range rounds {
		out = append(out, artifact.Turns...)
	}
	return out
}

// buildConsensus implements spec.md §4.4.5's consensus/confidence formula
// and agreement/disagreement synthesis.
func buildConsensus(rounds []RoundArtifact, warnings []string) Consensus {
	turns := allTurns(rounds)
	total := len(turns)
	var ok, failed int
	var failMessages []string
	var agreements []string
	var criticRisks []string

	for _, t := range turns {
		if t.Status == "ok" {
			ok++
			if len(agreements) < 6 {
				agreements = append(agreements, summarizeLine(string(t.Role)+": "+t.Claim, 140))
			}
			if t.Role == RoleCritic {
				criticRisks = append(criticRisks, t.Risks...)
			}
		} else {
			failed++
			if t.ErrorMessage != "" {
				failMessages = append(failMessages, summarizeLine(string(t.Role)+"/"+string(t.Round)+": "+t.ErrorMessage, 160))
			}
		}
	}

	var consensusScore, confidenceScore float64
	if total > 0 {
		consensusScore = round3(float64(ok) / float64(total))
		confidenceScore = round3(clamp01(consensusScore - 0.03*float64(failed)))
	}

	agreements = dedupNonEmpty(agreements)

	disagreements := failMessages
	if len(disagreements) == 0 {
		disagreements = append(disagreements, criticRisks...)
	}
	for _, w := range dedupNonEmpty(warnings) {
		disagreements = append(disagreements, "observed: "+w)
	}
	disagreements = dedupNonEmpty(disagreements)

	return Consensus{
		ConsensusScore:  consensusScore,
		ConfidenceScore: confidenceScore,
		Agreements:      agreements,
		Disagreements:   disagreements,
	}
}

// buildDecision implements spec.md §4.4.5's selected-option/why-selected/
// rejected-options synthesis.
func buildDecision(rounds []RoundArtifact, outputType OutputType) Decision {
	synthRound3, hasSynthRound3 := priorRoundTurn(rounds, Round3, RoleSynthesizer)
	propRound3, hasPropRound3 := priorRoundTurn(rounds, Round3, RoleProponent)

	selected := "Adopt a constrained " + string(outputType) + " execution path."
	switch {
	case hasSynthRound3 && synthRound3.Claim != "":
		selected = synthRound3.Claim
	case hasPropRound3 && propRound3.Claim != "":
		selected = propRound3.Claim
	}

	var why []string
	if hasSynthRound3 && synthRound3.Rationale != "" {
		why = append(why, summarizeLine(synthRound3.Rationale, 200))
	}
	if analystRound3, ok := priorRoundTurn(rounds, Round3, RoleAnalyst); ok && analystRound3.Rationale != "" {
		why = append(why, summarizeLine(analystRound3.Rationale, 200))
	}
	why = append(why, "Chosen for replayability, explicit risk handling, and direct actionability.")
	why = dedupNonEmpty(why)
	if len(why) > 3 {
		why = why[:3]
	}

	var rejected []RejectedOption
	counter := 1
	for _, artifact := range rounds {
		for _, t := range artifact.Turns {
			if t.Role != RoleCritic || t.Status != "ok" || t.Claim == "" {
				continue
			}
			rejected = append(rejected, RejectedOption{
				Option: t.Claim,
				Reason: "Critic objection #" + strconv.Itoa(counter) + " in " + string(t.Round),
			})
			counter++
			if len(rejected) == 2 {
				break
			}
		}
		if len(rejected) == 2 {
			break
		}
	}

	return Decision{
		SelectedOption:  selected,
		WhySelected:     why,
		RejectedOptions: rejected,
	}
}

var defaultRisks = []string{
	"Provider degradation may reduce turn diversity.",
	"Writeback contracts require operator follow-through.",
}

// buildRisks implements spec.md §4.4.5's risk collection, dedup,
// severity classification, and mitigation synthesis.
func buildRisks(rounds []RoundArtifact) []Risk {
	var raw []string
	for _, t := range allTurns(rounds) {
		if t.Status == "ok" {
			raw = append(raw, t.Risks...)
		}
	}
	raw = dedupNonEmpty(raw)
	if len(raw) == 0 {
		raw = append([]string(nil), defaultRisks...)
	}
	if len(raw) > 5 {
		raw = raw[:5]
	}

	out := make([]Risk, 0, len(raw))
	for _, r := range raw {
		out = append(out, Risk{
			Risk:       r,
			Severity:   classifyRiskSeverity(r),
			Mitigation: "Track via run replay and add explicit check for: " + summarizeLine(r, 80),
		})
	}
	return out
}

var highSeverityKeywords = []string{"security", "data loss", "outage", "blocking", "critical"}
var mediumSeverityKeywords = []string{"latency", "cost", "quality", "stability"}

func classifyRiskSeverity(risk string) string {
	lower := strings.ToLower(risk)
	if containsAny(lower, highSeverityKeywords) {
		return "high"
	}
	if containsAny(lower, mediumSeverityKeywords) {
		return "medium"
	}
	return "low"
}

// buildActions implements spec.md §4.4.5's fixed three-action synthesis,
// with the SPEC_FULL.md §4.8 natural-language due-date override supplement.
func buildActions(outputType OutputType, decision Decision, risks []Risk, now time.Time, dueOverrides []string, parseDue func(phrase string, now time.Time) (time.Time, bool)) []Action {
	riskFocus := "No critical risk recorded"
	if len(risks) > 0 {
		riskFocus = summarizeLine(risks[0].Risk, 100)
	}

	offsets := []int{1, 3, 7}
	texts := []string{
		"Confirm selected " + string(outputType) + " path: " + summarizeLine(decision.SelectedOption, 100),
		"Mitigate primary risk: " + riskFocus,
		"Schedule follow-up review of debate outcome and writeback record.",
	}

	actions := make([]Action, 0, 3)
	for i, days := range offsets {
		due := now.AddDate(0, 0, days).Format("2006-01-02")
		if i < len(dueOverrides) && dueOverrides[i] != "" && parseDue != nil {
			if parsed, ok := parseDue(dueOverrides[i], now); ok {
				due = parsed.Format("2006-01-02")
			}
		}
		actions = append(actions, Action{
			ID:     "A" + strconv.Itoa(i+1),
			Action: texts[i],
			Owner:  "me",
			Due:    due,
		})
	}
	return actions
}
