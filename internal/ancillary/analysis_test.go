package ancillary

import (
	"strings"
	"testing"
	"time"

	"kofnote/internal/records"
)

func TestLocalAnalysisIncludesPromptFocus(t *testing.T) {
	now := time.Now()
	recs := []records.Record{{Type: "decision", Title: "Ship v2", CreatedAt: "2026-07-29T09:00:00Z"}}

	out := LocalAnalysis("focus on sync reliability", recs, nil, now)

	for _, want := range []string{"# KOF Local Analysis", "## Summary", "Dominant type: decision", "## User Prompt Focus", "focus on sync reliability"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected analysis to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLocalAnalysisNoPromptOmitsFocusSection(t *testing.T) {
	out := LocalAnalysis("   ", nil, nil, time.Now())
	if strings.Contains(out, "User Prompt Focus") {
		t.Error("expected no prompt-focus section for blank prompt")
	}
	if !strings.Contains(out, "Dominant type: -") {
		t.Errorf("expected '-' dominant type with no records, got:\n%s", out)
	}
}
