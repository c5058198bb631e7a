package rubric

import (
	"testing"

	"github.com/esgscore/maturity/pkg/evidence"
)

func testRubric(t *testing.T) *Rubric {
	t.Helper()
	r, err := Load("data/schema.json", "data/v3.0.json")
	if err != nil {
		t.Fatalf("Load rubric: %v", err)
	}
	return r
}

func poolOf(theme evidence.Theme, quotes []string, pages []int) evidence.Pool {
	records := make([]evidence.Record, len(quotes))
	for i, q := range quotes {
		records[i] = evidence.Record{EvidenceID: "e" + itoa(i), Theme: theme, Quote: q, PageNo: pages[i]}
	}
	return evidence.Pool{Theme: theme, Records: records, PagesSeen: uniquePages(pages)}
}

func uniquePages(pages []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func TestScore_EvidenceGateDowngradesInsufficientEvidence(t *testing.T) {
	rb := testRubric(t)
	pool := poolOf("GHG", []string{"scope 1 emissions disclosed"}, []int{1})
	score, err := Score(rb, "GHG", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != nil {
		t.Fatalf("expected nil stage on gate failure, got %v", *score.Stage)
	}
	if score.Reason == "" {
		t.Error("expected insufficient_evidence reason to be set")
	}
}

func TestScore_RDStageZeroBrochurePrecedence(t *testing.T) {
	rb := testRubric(t)
	quote := "See our company brochure for sustainability highlights."
	pool := poolOf("RD", []string{quote, quote}, []int{1, 2})
	score, err := Score(rb, "RD", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage == nil || *score.Stage != 0 {
		t.Fatalf("expected RD stage 0, got %v", score.Stage)
	}
	if score.Confidence < 0.80 {
		t.Errorf("expected confidence >= 0.80 for RD stage 0, got %v", score.Confidence)
	}
}

func TestScore_GHGLimitedAssuranceIsStageThreeNotFour(t *testing.T) {
	rb := testRubric(t)
	quotes := []string{
		"Scope 3 emissions received limited assurance by Bureau Veritas this year.",
		"Scope 1 and scope 2 emissions are also disclosed in full.",
	}
	pool := poolOf("GHG", quotes, []int{3, 4})
	score, err := Score(rb, "GHG", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage == nil || *score.Stage != 3 {
		t.Fatalf("expected GHG stage 3, got %v", score.Stage)
	}
}

func TestScore_GHGReasonableAssuranceIsStageFour(t *testing.T) {
	rb := testRubric(t)
	quotes := []string{
		"Scope 3 emissions received reasonable assurance from an independent auditor.",
		"Scope 1 and scope 2 emissions are also fully disclosed.",
	}
	pool := poolOf("GHG", quotes, []int{3, 4})
	score, err := Score(rb, "GHG", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage == nil || *score.Stage != 4 {
		t.Fatalf("expected GHG stage 4, got %v", score.Stage)
	}
}

func TestScore_RMMFourPillarImplicitRecognition(t *testing.T) {
	rb := testRubric(t)
	quotes := []string{
		"Our governance of climate matters sits with the board.",
		"Strategy and risk management are integrated with metrics and targets reporting.",
	}
	pool := poolOf("RMM", quotes, []int{5, 6})
	score, err := Score(rb, "RMM", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage == nil || *score.Stage != 2 {
		t.Fatalf("expected RMM stage 2 via implicit four-pillar recognition, got %v", score.Stage)
	}
}

func TestScore_RDFrameworkBoostRequiresInTextMention(t *testing.T) {
	rb := testRubric(t)
	quotes := []string{"We publish a general sustainability narrative.", "No specific framework cited here either."}
	pool := poolOf("RD", quotes, []int{1, 2})
	score, err := Score(rb, "RD", pool, 2)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != nil && *score.Stage >= 2 {
		t.Errorf("framework boost must not apply without in-text framework mention, got stage %v", *score.Stage)
	}
}

func TestScore_UnknownThemeIsFatal(t *testing.T) {
	rb := testRubric(t)
	pool := poolOf("NOPE", []string{"x", "y"}, []int{1, 2})
	_, err := Score(rb, "NOPE", pool, 2)
	if err == nil {
		t.Fatal("expected RubricError for unknown theme")
	}
}
