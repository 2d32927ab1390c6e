package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"veristream/internal/llm"
	"veristream/internal/model"
)

// stubProvider returns canned responses, failing the first failN calls.
type stubProvider struct {
	text  string
	failN int
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	if s.calls <= s.failN {
		return nil, errors.New("transient API error")
	}
	return &llm.CompletionResponse{Text: s.text}, nil
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := extractSleepFunc
	extractSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { extractSleepFunc = orig })
}

const extractionJSON = `{"claims": [
	{"quote": "unemployment fell to 3.5% last month", "claim_text": "The unemployment rate is 3.5%", "speaker": "Anchor", "importance_score": 0.6, "start_s": 12, "end_s": 15},
	{"quote": "the lowest in 50 years", "claim_text": "The unemployment rate is the lowest in 50 years", "speaker": "Anchor", "importance_score": 0.85, "start_s": 0, "end_s": 0}
]}`

func chunkFixture() model.TranscriptChunk {
	return model.TranscriptChunk{Index: 3, StartS: 90, EndS: 135, Text: "unemployment fell to 3.5% last month, the lowest in 50 years"}
}

func TestExtract_ParsesClaims(t *testing.T) {
	noSleep(t)
	e := NewClaimExtractor(&stubProvider{text: extractionJSON})

	claims, err := e.Extract(context.Background(), "vid-1", chunkFixture(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}

	if claims[0].Importance != 0.6 || claims[1].Importance != 0.85 {
		t.Errorf("importance scores not preserved: %v, %v", claims[0].Importance, claims[1].Importance)
	}
	if claims[0].StartS != 12 {
		t.Errorf("explicit timing not preserved, got %v", claims[0].StartS)
	}
	// Zero timing falls back to the chunk's bounds.
	if claims[1].StartS != 90 || claims[1].EndS != 135 {
		t.Errorf("chunk timing fallback not applied: %v-%v", claims[1].StartS, claims[1].EndS)
	}
	if claims[0].ChunkIndex != 3 || claims[0].ContentID != "vid-1" {
		t.Errorf("claim provenance wrong: %+v", claims[0])
	}
}

func TestExtract_ToleratesCommentaryAroundJSON(t *testing.T) {
	noSleep(t)
	text := "Here are the claims:\n" + extractionJSON + "\nDone."
	e := NewClaimExtractor(&stubProvider{text: text})

	claims, err := e.Extract(context.Background(), "vid-1", chunkFixture(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("expected 2 claims, got %d", len(claims))
	}
}

func TestExtract_RetriesTransientFailures(t *testing.T) {
	noSleep(t)
	stub := &stubProvider{text: extractionJSON, failN: 2}
	e := NewClaimExtractor(stub)

	claims, err := e.Extract(context.Background(), "vid-1", chunkFixture(), "")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", stub.calls)
	}
	if len(claims) != 2 {
		t.Errorf("expected 2 claims, got %d", len(claims))
	}
}

func TestExtract_FailsAfterRetriesExhausted(t *testing.T) {
	noSleep(t)
	stub := &stubProvider{text: extractionJSON, failN: 10}
	e := NewClaimExtractor(stub)

	if _, err := e.Extract(context.Background(), "vid-1", chunkFixture(), ""); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if stub.calls != extractMaxRetries {
		t.Errorf("expected %d attempts, got %d", extractMaxRetries, stub.calls)
	}
}

func TestExtract_SkipsMalformedAndDuplicateEntries(t *testing.T) {
	noSleep(t)
	text := `{"claims": [
		{"claim_text": "", "importance_score": 0.9},
		{"claim_text": "GDP grew 2% in 2024", "importance_score": 1.7},
		{"claim_text": "GDP grew 2% in 2024!", "importance_score": 0.5}
	]}`
	e := NewClaimExtractor(&stubProvider{text: text})

	claims, err := e.Extract(context.Background(), "vid-1", chunkFixture(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Empty claim dropped; punctuation-only variant deduped by fingerprint.
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if claims[0].Importance != 1.0 {
		t.Errorf("importance should clamp to 1.0, got %v", claims[0].Importance)
	}
}

func TestNormalizeClaimText_FingerprintStability(t *testing.T) {
	a := model.Claim{Text: "The unemployment rate is 3.5%"}
	b := model.Claim{Text: "the Unemployment rate is 35"}
	c := model.Claim{Text: "GDP grew 2% in 2024"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("near-identical phrasings should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("distinct claims must not collide")
	}
}
