package debate

import (
	"strconv"
	"strings"
	"time"
)

// validDueDate reports whether due parses as YYYY-MM-DD.
func validDueDate(due string) bool {
	_, err := time.Parse("2006-01-02", due)
	return err == nil
}

// ValidatePacket enforces every Final Packet shape invariant from
// spec.md §3/§8. Returns a DEBATE_ERR_PACKET error naming the first
// violation found.
func ValidatePacket(p FinalPacket) error {
	if p.RunID == "" {
		return newErr(ErrPacket, "run_id must not be empty")
	}
	if p.Mode != PacketMode {
		return newErr(ErrPacket, "mode must be %q, got %q", PacketMode, p.Mode)
	}
	if strings.TrimSpace(p.Problem) == "" {
		return newErr(ErrPacket, "problem must not be empty")
	}
	if _, ok := validOutputType(string(p.OutputType)); !ok {
		return newErr(ErrPacket, "output_type %q is invalid", p.OutputType)
	}

	if len(p.Participants) != 5 {
		return newErr(ErrPacket, "participants must have exactly 5 entries, got %d", len(p.Participants))
	}
	seen := make(map[Role]bool, 5)
	for _, part := range p.Participants {
		if part.ModelProvider == "" || part.ModelName == "" {
			return newErr(ErrPacket, "participant %q missing model_provider/model_name", part.Role)
		}
		if seen[part.Role] {
			return newErr(ErrPacket, "duplicate participant role %q", part.Role)
		}
		seen[part.Role] = true
	}
	for _, role := range Roles {
		if !seen[role] {
			return newErr(ErrPacket, "missing participant for role %q", role)
		}
	}

	if p.Consensus.ConsensusScore < 0 || p.Consensus.ConsensusScore > 1 {
		return newErr(ErrPacket, "consensus_score out of [0,1]: %v", p.Consensus.ConsensusScore)
	}
	if p.Consensus.ConfidenceScore < 0 || p.Consensus.ConfidenceScore > 1 {
		return newErr(ErrPacket, "confidence_score out of [0,1]: %v", p.Consensus.ConfidenceScore)
	}
	if len(p.Consensus.Agreements) == 0 {
		return newErr(ErrPacket, "key_agreements must not be empty")
	}
	for _, v := range p.Consensus.Agreements {
		if strings.TrimSpace(v) == "" {
			return newErr(ErrPacket, "key_agreements contains an empty entry")
		}
	}
	for _, v := range p.Consensus.Disagreements {
		if strings.TrimSpace(v) == "" {
			return newErr(ErrPacket, "key_disagreements contains an empty entry")
		}
	}

	if strings.TrimSpace(p.Decision.SelectedOption) == "" {
		return newErr(ErrPacket, "decision.selected_option must not be empty")
	}
	if len(p.Decision.WhySelected) == 0 {
		return newErr(ErrPacket, "decision.why_selected must have at least one entry")
	}
	for _, r := range p.Decision.RejectedOptions {
		if strings.TrimSpace(r.Reason) == "" {
			return newErr(ErrPacket, "rejected_options entry missing reason")
		}
	}

	if len(p.Risks) > 5 {
		return newErr(ErrPacket, "risks must have at most 5 entries, got %d", len(p.Risks))
	}
	for _, r := range p.Risks {
		switch r.Severity {
		case "low", "medium", "high":
		default:
			return newErr(ErrPacket, "risk severity %q is invalid", r.Severity)
		}
	}

	if len(p.NextActions) == 0 {
		return newErr(ErrPacket, "next_actions must not be empty")
	}
	for _, a := range p.NextActions {
		if a.ID == "" || a.Action == "" || a.Owner == "" {
			return newErr(ErrPacket, "next_actions entry %q missing a required field", a.ID)
		}
		if !validDueDate(a.Due) {
			return newErr(ErrPacket, "next_actions entry %q has invalid due date %q", a.ID, a.Due)
		}
	}

	if p.Timestamps.StartedAt == "" || p.Timestamps.FinishedAt == "" {
		return newErr(ErrPacket, "timestamps.started_at/finished_at must not be empty")
	}

	return nil
}

// RenderPacketMarkdown produces the human-readable rendition per
// spec.md §6.4.
func RenderPacketMarkdown(p FinalPacket) string {
	var b strings.Builder
	b.WriteString("# Debate Final Packet - " + p.RunID + "\n\n")

	b.WriteString("## Problem\n\n" + p.Problem + "\n\n")

	b.WriteString("## Constraints\n\n")
	// constraints are not carried on the packet itself; rendered from
	// trace-adjacent context is out of scope here, so this section is a
	// stable placeholder header kept for layout parity with spec.md §6.4.
	b.WriteString("(see request.json)\n\n")

	b.WriteString("## Conclusion\n\n")
	b.WriteString("TL;DR: " + summarizeLine(p.Decision.SelectedOption, 160) + "\n\n")
	b.WriteString("**Selected option:** " + p.Decision.SelectedOption + "\n\n")

	b.WriteString("## Why Selected\n\n")
	for _, w := range p.Decision.WhySelected {
		b.WriteString("- " + w + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## Consensus\n\n")
	b.WriteString("- consensus_score: " + formatScore(p.Consensus.ConsensusScore) + "\n")
	b.WriteString("- confidence_score: " + formatScore(p.Consensus.ConfidenceScore) + "\n\n")
	b.WriteString("**Agreements:**\n\n")
	for _, a := range p.Consensus.Agreements {
		b.WriteString("- " + a + "\n")
	}
	b.WriteString("\n**Disagreements:**\n\n")
	for _, d := range p.Consensus.Disagreements {
		b.WriteString("- " + d + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## Risks\n\n")
	for _, r := range p.Risks {
		b.WriteString("- [" + r.Severity + "] " + r.Risk + " — " + r.Mitigation + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## Next Actions\n\n")
	for _, a := range p.NextActions {
		b.WriteString("- " + a.ID + ": " + a.Action + " (owner: " + a.Owner + ", due: " + a.Due + ")\n")
	}
	b.WriteString("\n")

	b.WriteString("## Trace\n\n")
	b.WriteString("Round refs: " + strings.Join(p.Trace.RoundRefs, ", ") + "\n\n")
	b.WriteString("Evidence refs: " + strings.Join(p.Trace.EvidenceRefs, ", ") + "\n")

	return b.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
