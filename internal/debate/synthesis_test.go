package debate

import (
	"testing"
	"time"
)

func mkTurn(role Role, round Round, status string) Turn {
	t := Turn{Role: role, Round: round, Status: status, Claim: "claim-" + string(role), Risks: []string{"security risk detected"}}
	if status != "ok" {
		t.ErrorCode = ErrProviderUnsupported
		t.ErrorMessage = "boom"
	}
	return t
}

func fifteenTurns(failCount int) []RoundArtifact {
	var rounds []RoundArtifact
	failed := 0
	for _, r := range Rounds {
		var artifact RoundArtifact
		for _, role := range Roles {
			status := "ok"
			if failed < failCount {
				status = "failed"
				failed++
			}
			artifact.Turns = append(artifact.Turns, mkTurn(role, r, status))
		}
		rounds = append(rounds, artifact)
	}
	return rounds
}

func TestBuildConsensusScoreFormula(t *testing.T) {
	rounds := fifteenTurns(3) // 12 ok, 3 failed, total 15
	c := buildConsensus(rounds, nil)
	wantConsensus := round3(12.0 / 15.0)
	if c.ConsensusScore != wantConsensus {
		t.Fatalf("consensus_score = %v, want %v", c.ConsensusScore, wantConsensus)
	}
	wantConfidence := round3(clamp01(wantConsensus - 0.03*3))
	if c.ConfidenceScore != wantConfidence {
		t.Fatalf("confidence_score = %v, want %v", c.ConfidenceScore, wantConfidence)
	}
}

func TestBuildConsensusAllOK(t *testing.T) {
	rounds := fifteenTurns(0)
	c := buildConsensus(rounds, nil)
	if c.ConsensusScore != 1 || c.ConfidenceScore != 1 {
		t.Fatalf("expected perfect scores, got %+v", c)
	}
	if len(c.Agreements) == 0 {
		t.Fatal("expected agreements to be populated")
	}
}

func TestBuildRisksCapsAtFiveAndClassifies(t *testing.T) {
	rounds := fifteenTurns(0)
	risks := buildRisks(rounds)
	if len(risks) > 5 {
		t.Fatalf("expected at most 5 risks, got %d", len(risks))
	}
	for _, r := range risks {
		if r.Severity != "high" {
			t.Fatalf("expected high severity for security risk, got %s", r.Severity)
		}
	}
}

func TestBuildActionsFixedThreeWithOffsets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decision := Decision{SelectedOption: "adopt plan"}
	risks := []Risk{{Risk: "outage risk", Severity: "high"}}
	actions := buildActions(OutputDecision, decision, risks, now, nil, nil)
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}
	wantDues := []string{"2026-01-02", "2026-01-04", "2026-01-08"}
	for i, a := range actions {
		if a.Due != wantDues[i] {
			t.Errorf("action %d due = %s, want %s", i, a.Due, wantDues[i])
		}
		if a.Owner != "me" {
			t.Errorf("action %d owner = %s, want me", i, a.Owner)
		}
	}
}

func TestBuildActionsDueOverride(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parse := func(phrase string, now time.Time) (time.Time, bool) {
		if phrase == "in 2 days" {
			return now.AddDate(0, 0, 2), true
		}
		return time.Time{}, false
	}
	actions := buildActions(OutputDecision, Decision{}, nil, now, []string{"in 2 days"}, parse)
	if actions[0].Due != "2026-01-03" {
		t.Fatalf("expected override to apply, got %s", actions[0].Due)
	}
	if actions[1].Due != "2026-01-04" {
		t.Fatalf("expected fixed offset for unoverridden action, got %s", actions[1].Due)
	}
}
