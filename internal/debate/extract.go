package debate

import "strings"

// claimLabels and stopLabels preserve the ASCII-plus-CJK candidate list the
// source claim extractor matches against (spec.md §4.4.4, §9). The
// original_source/types.rs literals for the CJK variants were not
// recoverable from the retrieval pack (they decoded to empty string
// literals); the Chinese equivalents below are a documented best-effort
// restoration, not a byte-for-byte port.
var claimLabels = []string{"claim:", "claim", "主张：", "主张:"}

var stopLabels = []string{
	"rationale:", "rationale",
	"reason:", "reason",
	"why:", "why",
	"risks:", "risks",
	"risk:", "risk",
	"理由：", "理由:",
	"原因：", "原因:",
	"为什么：", "为什么:",
	"风险：", "风险:",
}

// riskKeywords are the case-insensitive tokens (plus CJK equivalents) that
// mark a line as risk-bearing.
var riskKeywords = []string{"risk", "blocker", "issue", "failure", "风险", "阻碍", "问题", "失败"}

// extractClaim implements the source's extract_claim_text/
// extract_first_non_empty_line fallback: collect lines between a claim
// label and the next stop label, joined with single spaces; if no claim
// block is found, fall back to the first non-empty line with any claim
// label prefix stripped.
func extractClaim(text string) string {
	lines := strings.Split(text, "\n")
	collecting := false
	var parts []string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			if collecting {
				break
			}
			continue
		}
		normalized := trimBulletPrefix(line)
		lower := strings.ToLower(normalized)

		if !collecting {
			if label, ok := matchPrefix(lower, claimLabels); ok {
				collecting = true
				tail := strings.TrimSpace(normalized[len(label):])
				if tail != "" {
					parts = append(parts, tail)
				}
			}
			continue
		}

		if _, ok := matchPrefix(lower, stopLabels); ok {
			break
		}
		parts = append(parts, normalized)
	}

	claim := strings.TrimSpace(strings.Join(parts, " "))
	if claim != "" {
		return claim
	}
	return extractFirstNonEmptyLine(text)
}

func extractFirstNonEmptyLine(text string) string {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		return stripClaimLabel(line)
	}
	return ""
}

func stripClaimLabel(line string) string {
	lower := strings.ToLower(line)
	if label, ok := matchPrefix(lower, claimLabels); ok {
		return strings.TrimSpace(line[len(label):])
	}
	return line
}

func matchPrefix(lower string, labels []string) (string, bool) {
	for _, label := range labels {
		if strings.HasPrefix(lower, label) {
			return label, true
		}
	}
	return "", false
}

func trimBulletPrefix(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-*• "))
}

// extractRisks implements extract_risk_lines: every line mentioning a risk
// keyword, bullet-stripped; falls back to one synthesized "Potential risk:"
// summary line when none match.
func extractRisks(text string) []string {
	var risks []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, riskKeywords) {
			risks = append(risks, trimBulletPrefix(line))
		}
	}
	if len(risks) == 0 {
		if fallback := summarizeLine(text, 130); fallback != "" {
			risks = append(risks, "Potential risk: "+fallback)
		}
	}
	return dedupNonEmpty(risks)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func dedupNonEmpty(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func summarizeLine(text string, max int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	r := []rune(flat)
	if len(r) <= max {
		return flat
	}
	return string(r[:max]) + "..."
}
