package debate

import "testing"

func TestExtractClaimFromLabeledBlock(t *testing.T) {
	text := "Claim: adopt isolated runner\nwith append-only events\nRationale: because replay safety\nRisks: none"
	got := extractClaim(text)
	want := "adopt isolated runner with append-only events"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractClaimFallsBackToFirstLine(t *testing.T) {
	text := "No explicit label here\nmore text"
	got := extractClaim(text)
	if got != "No explicit label here" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractClaimStopsAtRiskLabel(t *testing.T) {
	text := "Claim: one\ntwo\nRisk: should not appear\nthree"
	got := extractClaim(text)
	if got != "one two" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractRisksFindsKeywordLines(t *testing.T) {
	text := "Claim: x\nRationale: y\nRisks: operational failure if unattended\nunrelated line"
	risks := extractRisks(text)
	if len(risks) != 1 {
		t.Fatalf("expected 1 risk line, got %v", risks)
	}
}

func TestExtractRisksFallsBackToSummary(t *testing.T) {
	text := "Nothing concerning mentioned here at all"
	risks := extractRisks(text)
	if len(risks) != 1 || risks[0][:15] != "Potential risk:" {
		t.Fatalf("expected synthesized fallback risk, got %v", risks)
	}
}

func TestClassifyPolarity(t *testing.T) {
	cases := map[string]polarity{
		"Agree: that's a fair point":       polarityConcede,
		"Object: this ignores the cost":    polarityRebut,
		"Add: also consider latency":       polarityExtend,
		"something entirely unrelated":     polarityUnknown,
	}
	for input, want := range cases {
		if got := classifyPolarity(input); got != want {
			t.Errorf("classifyPolarity(%q) = %v, want %v", input, got, want)
		}
	}
}
