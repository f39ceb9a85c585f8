package debate

import (
	"regexp"
	"strings"
)

// polarity classifies a Round2 challenge response, adapted from the
// teacher's internal/consensus AGREE/OBJECT/ADD parser: the same
// explicit-pattern-then-keyword cascade, generalized from "which model do
// you agree with" to "does this response concede, rebut, or extend the
// challenge". Round3's revision dedup keys off target role plus polarity so
// a revised position can't cite the same challenge twice under two labels.
type polarity int

const (
	polarityUnknown polarity = iota
	polarityConcede
	polarityRebut
	polarityExtend
)

var (
	concedePattern = regexp.MustCompile(`(?i)^(agree|concede|accepted?)\s*:?\s*(.*)$`)
	rebutPattern   = regexp.MustCompile(`(?i)^(object|disagree|reject)\s*:?\s*(.*)$`)
	extendPattern  = regexp.MustCompile(`(?i)^(add|also|extend)\s*:?\s*(.*)$`)

	concedeKeywords = []string{"i agree", "agreed", "concur", "that's correct", "fair point"}
	rebutKeywords   = []string{"i disagree", "i object", "however", "that's wrong", "incorrect"}
	extendKeywords  = []string{"i would add", "additionally", "also consider", "to expand on"}
)

func classifyPolarity(response string) polarity {
	trimmed := strings.TrimSpace(response)
	if m := concedePattern.FindStringSubmatch(trimmed); m != nil {
		return polarityConcede
	}
	if m := rebutPattern.FindStringSubmatch(trimmed); m != nil {
		return polarityRebut
	}
	if m := extendPattern.FindStringSubmatch(trimmed); m != nil {
		return polarityExtend
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range concedeKeywords {
		if strings.Contains(lower, kw) {
			return polarityConcede
		}
	}
	for _, kw := range rebutKeywords {
		if strings.Contains(lower, kw) {
			return polarityRebut
		}
	}
	for _, kw := range extendKeywords {
		if strings.Contains(lower, kw) {
			return polarityExtend
		}
	}
	return polarityUnknown
}

// revisionKey dedups Round3 revisions referencing the same role's Round2
// challenge: (target role, polarity) identifies one distinct revision
// thread even if phrased differently across turns.
func revisionKey(target Role, p polarity) string {
	return string(target) + ":" + polarityLabel(p)
}

func polarityLabel(p polarity) string {
	switch p {
	case polarityConcede:
		return "concede"
	case polarityRebut:
		return "rebut"
	case polarityExtend:
		return "extend"
	default:
		return "unknown"
	}
}
