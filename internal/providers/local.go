package providers

import "strings"

// GenerateLocal is a pure function of the debate context. It never fails and
// never touches the network or a subprocess; the three web-stub providers
// are routed here since they're treated as unavailable in-process.
func GenerateLocal(ctx LocalContext) string {
	switch ctx.Round {
	case "round2":
		target := ctx.TargetRole
		if target == "" {
			target = "peer"
		}
		return "Claim: " + ctx.Role + " challenges " + target + " on evidence depth.\n" +
			"Rationale: Ask for concrete trade-offs, not generic statements.\n" +
			"Risks: without challenge quality, consensus may converge too early."
	case "round3":
		prior := ctx.PriorClaim
		if prior == "" {
			prior = "cross-examination feedback"
		}
		return "Claim: " + ctx.Role + " revised position keeps local-first execution and adds guardrails.\n" +
			"Rationale: Revision incorporates '" + summarizeLine(prior, 120) + "'.\n" +
			"Risks: operational overhead increases if writeback contracts are not automated."
	default:
		constraints := "no explicit constraints"
		if len(ctx.Constraints) > 0 {
			constraints = strings.Join(ctx.Constraints, "; ")
		}
		focus := summarizeLine(ctx.Problem, 80)
		return "Claim: " + ctx.Role + " perspective recommends a practical path for " + focus + ".\n" +
			"Rationale: Prioritize local-first traceability and fast operator control under " + constraints + ".\n" +
			"Risks: hidden assumptions may survive without explicit cross-check."
	}
}

// summarizeLine truncates text to at most max runes on a single line,
// matching the debate catalog's claim-summary shape.
func summarizeLine(text string, max int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	r := []rune(flat)
	if len(r) <= max {
		return flat
	}
	return string(r[:max]) + "..."
}
