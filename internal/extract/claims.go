package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"veristream/internal/llm"
	"veristream/internal/model"
)

const extractMaxRetries = 3

// extractSleepFunc is the sleep function used between retries (injectable for tests)
var extractSleepFunc = time.Sleep

// ClaimExtractor turns a transcript chunk into zero or more candidate
// claims with importance scores, using the configured LLM provider.
type ClaimExtractor struct {
	provider llm.Provider
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(provider llm.Provider) *ClaimExtractor {
	return &ClaimExtractor{provider: provider}
}

const extractSystem = `You are a precise claim extraction engine.
Given a chunk of transcript text from a video, identify atomic, externally
verifiable claims. Ignore subjective statements (e.g., "I love my family").
Each claim must be a minimal, self-contained statement suitable for verification.
Output strictly in JSON with a top-level "claims" array. No extra commentary.`

// extractedClaim is the wire shape the model is asked to produce.
type extractedClaim struct {
	Quote      string  `json:"quote"`
	ClaimText  string  `json:"claim_text"`
	Speaker    string  `json:"speaker"`
	Importance float64 `json:"importance_score"`
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
}

type extractionPayload struct {
	Claims []extractedClaim `json:"claims"`
}

// Extract extracts candidate claims from one chunk. The chunk's trailing
// context and the optional transcript summary help the model resolve
// references like "he" or "that policy". Transient provider failures are
// retried with backoff before the chunk is reported failed.
func (e *ClaimExtractor) Extract(ctx context.Context, contentID string, chunk model.TranscriptChunk, summary string) ([]model.Claim, error) {
	prompt := buildExtractionPrompt(contentID, chunk, summary)

	var resp *llm.CompletionResponse
	var err error
	for attempt := 0; attempt < extractMaxRetries; attempt++ {
		resp, err = e.provider.Complete(ctx, llm.CompletionRequest{
			System: extractSystem,
			Prompt: prompt,
		})
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < extractMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			extractSleepFunc(backoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract claims from chunk %d: %w", chunk.Index, err)
	}

	payload, err := parseExtraction(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse extraction for chunk %d: %w", chunk.Index, err)
	}

	claims := make([]model.Claim, 0, len(payload.Claims))
	for _, c := range payload.Claims {
		text := strings.TrimSpace(c.ClaimText)
		if text == "" {
			continue // Skip malformed entries
		}

		startS, endS := c.StartS, c.EndS
		if startS == 0 && endS == 0 {
			// Fall back to chunk timing when the model could not place the claim
			startS, endS = chunk.StartS, chunk.EndS
		}

		claims = append(claims, model.Claim{
			ContentID:  contentID,
			StartS:     startS,
			EndS:       endS,
			Quote:      strings.TrimSpace(c.Quote),
			Text:       text,
			Speaker:    strings.TrimSpace(c.Speaker),
			Importance: clamp01(c.Importance),
			ChunkIndex: chunk.Index,
		})
	}

	return dedupeClaims(claims), nil
}

func buildExtractionPrompt(contentID string, chunk model.TranscriptChunk, summary string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Content ID: %s\n", contentID)
	fmt.Fprintf(&b, "Chunk %d covers %.1fs to %.1fs.\n", chunk.Index, chunk.StartS, chunk.EndS)
	if summary != "" {
		fmt.Fprintf(&b, "\nVideo summary for context:\n%s\n", summary)
	}
	if chunk.Context != "" {
		fmt.Fprintf(&b, "\nTrailing context from previous chunk (do NOT extract claims from it):\n%s\n", chunk.Context)
	}
	fmt.Fprintf(&b, "\nTranscript chunk:\n\"\"\"\n%s\n\"\"\"\n", chunk.Text)
	b.WriteString(`
Rules:
- "claim_text" captures the atomic normalized statement only; "quote" is the verbatim transcript wording.
- "speaker" is the attributed speaker if identifiable, else "".
- "importance_score" in [0,1] rates how consequential the claim is to verify.
- Approximate "start_s"/"end_s" from the chunk when possible; otherwise set both to 0.
- Only include externally verifiable factual statements (statistics, events, properties, attributions).
- Return valid JSON: {"claims": [{"quote": str, "claim_text": str, "speaker": str, "importance_score": float, "start_s": float, "end_s": float}...]}`)

	return b.String()
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// parseExtraction decodes the model output, tolerating commentary around
// the JSON object.
func parseExtraction(text string) (*extractionPayload, error) {
	var payload extractionPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return &payload, nil
	}

	// Attempt to extract a JSON substring
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in extractor output")
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}
	return &payload, nil
}

// dedupeClaims removes claims whose fingerprints collide within one chunk.
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[model.Fingerprint]bool)
	unique := claims[:0]

	for _, claim := range claims {
		fp := claim.Fingerprint()
		if !seen[fp] {
			seen[fp] = true
			unique = append(unique, claim)
		}
	}

	return unique
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
