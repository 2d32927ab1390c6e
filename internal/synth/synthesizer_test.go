package synth

import (
	"strings"
	"testing"

	"veristream/internal/model"
)

func newTestSynthesizer() *Synthesizer {
	return New(model.VerifyConfig{MinFindings: 1})
}

func succeeded(variant string, stance model.Stance, tier model.CredibilityTier) model.VerificationTask {
	return model.VerificationTask{
		Variant: variant,
		State:   model.TaskSucceeded,
		Finding: &model.EvidenceFinding{
			Variant:    variant,
			Stance:     stance,
			Tier:       tier,
			Assessment: "Evidence assessment from " + variant + ".",
			Sources: []model.SourceCitation{
				{Title: variant + " source", URL: "https://example.com/" + variant, Tier: tier},
			},
		},
	}
}

func absent(variant string, state model.TaskState) model.VerificationTask {
	return model.VerificationTask{Variant: variant, State: state, Err: "deadline exceeded"}
}

func TestSynthesize_UnanimousHighCredibility(t *testing.T) {
	tasks := []model.VerificationTask{
		succeeded("news", model.StanceSupports, model.TierHigh),
		succeeded("academic", model.StanceSupports, model.TierHigh),
		succeeded("factcheck", model.StanceSupports, model.TierHigh),
		succeeded("government", model.StanceSupports, model.TierHigh),
		succeeded("temporal", model.StanceSupports, model.TierHigh),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)

	if v.Label != model.VerdictTrue {
		t.Errorf("label %v, want TRUE", v.Label)
	}
	if v.Confidence < 8 {
		t.Errorf("confidence %.1f, want >= 8 for unanimous high-credibility agreement", v.Confidence)
	}
	if len(v.Absent) != 0 {
		t.Errorf("unexpected absent workers: %v", v.Absent)
	}
	if len(v.Sources) != 5 {
		t.Errorf("expected 5 merged sources, got %d", len(v.Sources))
	}
}

func TestSynthesize_OneWorkerTimedOut(t *testing.T) {
	tasks := []model.VerificationTask{
		absent("news", model.TaskTimedOut),
		succeeded("academic", model.StanceSupports, model.TierHigh),
		succeeded("factcheck", model.StanceSupports, model.TierHigh),
		succeeded("government", model.StanceSupports, model.TierHigh),
		succeeded("temporal", model.StanceSupports, model.TierHigh),
	}

	full := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, allSucceed())
	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)

	if v.Label != model.VerdictTrue {
		t.Errorf("label %v, want TRUE", v.Label)
	}
	if v.Confidence >= full.Confidence {
		t.Errorf("confidence %.1f should be below full-coverage %.1f", v.Confidence, full.Confidence)
	}
	if v.Confidence < 8 {
		t.Errorf("confidence %.1f, want still >= 8 with four agreeing workers", v.Confidence)
	}
	if len(v.Absent) != 1 || v.Absent[0] != "news" {
		t.Errorf("absent %v, want [news]", v.Absent)
	}
}

func allSucceed() []model.VerificationTask {
	return []model.VerificationTask{
		succeeded("news", model.StanceSupports, model.TierHigh),
		succeeded("academic", model.StanceSupports, model.TierHigh),
		succeeded("factcheck", model.StanceSupports, model.TierHigh),
		succeeded("government", model.StanceSupports, model.TierHigh),
		succeeded("temporal", model.StanceSupports, model.TierHigh),
	}
}

func TestSynthesize_NoFindings(t *testing.T) {
	tasks := []model.VerificationTask{
		absent("news", model.TaskFailed),
		absent("academic", model.TaskTimedOut),
		absent("factcheck", model.TaskFailed),
		absent("government", model.TaskTimedOut),
		absent("temporal", model.TaskFailed),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)

	if v.Label != model.VerdictUnverifiable {
		t.Errorf("label %v, want UNVERIFIABLE", v.Label)
	}
	if v.Confidence != 0 {
		t.Errorf("confidence %.1f, want 0", v.Confidence)
	}
	if len(v.Absent) != 5 {
		t.Errorf("absent %v, want all five variants", v.Absent)
	}
}

func TestSynthesize_InconclusiveOnly(t *testing.T) {
	tasks := []model.VerificationTask{
		succeeded("news", model.StanceInconclusive, model.TierMedium),
		succeeded("temporal", model.StanceInconclusive, model.TierLow),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)
	if v.Label != model.VerdictUnverifiable {
		t.Errorf("label %v, want UNVERIFIABLE for inconclusive-only evidence", v.Label)
	}
	if v.Confidence != 0 {
		t.Errorf("confidence %.1f, want 0", v.Confidence)
	}
}

func TestSynthesize_CredibleConflictIsMisleading(t *testing.T) {
	tasks := []model.VerificationTask{
		succeeded("government", model.StanceRefutes, model.TierHigh),
		succeeded("news", model.StanceSupports, model.TierHigh),
		succeeded("factcheck", model.StanceSupports, model.TierMedium),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)

	if v.Label != model.VerdictMisleading {
		t.Errorf("label %v, want MISLEADING when credible refutation outweighs support", v.Label)
	}
	if v.Confidence >= 8 {
		t.Errorf("confidence %.1f should reflect disagreement", v.Confidence)
	}
}

func TestSynthesize_SplitEvidenceIsPartiallyTrue(t *testing.T) {
	tasks := []model.VerificationTask{
		succeeded("government", model.StanceRefutes, model.TierHigh),
		succeeded("academic", model.StanceSupports, model.TierHigh),
		succeeded("news", model.StanceSupports, model.TierHigh),
		succeeded("factcheck", model.StanceSupports, model.TierMedium),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)
	if v.Label != model.VerdictPartiallyTrue {
		t.Errorf("label %v, want PARTIALLY_TRUE for support-leaning split", v.Label)
	}
}

func TestSynthesize_UnanimousRefutationIsFalse(t *testing.T) {
	tasks := []model.VerificationTask{
		succeeded("government", model.StanceRefutes, model.TierHigh),
		succeeded("academic", model.StanceRefutes, model.TierHigh),
		succeeded("factcheck", model.StanceRefutes, model.TierMedium),
	}

	v := newTestSynthesizer().Synthesize(model.Claim{Text: "x"}, tasks)
	if v.Label != model.VerdictFalse {
		t.Errorf("label %v, want FALSE", v.Label)
	}
	if !strings.Contains(v.Explanation, "refute") {
		t.Errorf("explanation should mention refutation: %q", v.Explanation)
	}
}

func TestMergeSources_DedupesByURL(t *testing.T) {
	f1 := &model.EvidenceFinding{Sources: []model.SourceCitation{
		{URL: "https://bls.gov/a", Tier: model.TierHigh},
		{URL: "https://shared.example.com", Tier: model.TierLow},
	}}
	f2 := &model.EvidenceFinding{Sources: []model.SourceCitation{
		{URL: "https://shared.example.com", Tier: model.TierMedium},
	}}

	merged := mergeSources([]*model.EvidenceFinding{f1, f2})
	if len(merged) != 2 {
		t.Fatalf("expected 2 sources after dedupe, got %d", len(merged))
	}
	// Ordered high first; duplicate keeps the best tier seen.
	if merged[0].URL != "https://bls.gov/a" {
		t.Errorf("high-tier source should sort first, got %q", merged[0].URL)
	}
	if merged[1].Tier != model.TierMedium {
		t.Errorf("duplicate should keep best tier, got %v", merged[1].Tier)
	}
}

func TestEffectiveTier_DemotesDeadSources(t *testing.T) {
	dead := false
	f := &model.EvidenceFinding{
		Tier: model.TierHigh,
		Sources: []model.SourceCitation{
			{URL: "https://bls.gov/a", Tier: model.TierHigh, Accessible: &dead},
		},
	}
	if got := effectiveTier(f); got != model.TierMedium {
		t.Errorf("dead high-tier source should demote to medium, got %v", got)
	}
}
