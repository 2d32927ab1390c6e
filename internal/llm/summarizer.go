package llm

import (
	"context"
	"fmt"
)

// Summarizer generates a short whole-transcript summary that the claim
// extractor uses as context for pronoun and reference resolution.
// Summary failures are never fatal to a session; callers warn and
// continue without context.
type Summarizer struct {
	provider Provider
}

// NewSummarizer creates a summarizer on top of the given provider.
func NewSummarizer(provider Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

const summarySystem = "You summarize video transcripts. Produce a 2-3 sentence factual summary " +
	"of the overall topic, the main speakers if identifiable, and the time period discussed. " +
	"No opinions, no filler."

// Summarize produces the context summary for a transcript.
func (s *Summarizer) Summarize(ctx context.Context, contentID, transcript string) (string, error) {
	// Long transcripts are truncated; the summary only needs the gist.
	const maxChars = 12000
	if len(transcript) > maxChars {
		transcript = transcript[:maxChars]
	}

	resp, err := s.provider.Complete(ctx, CompletionRequest{
		System:    summarySystem,
		Prompt:    fmt.Sprintf("Content ID: %s\n\nTranscript:\n%s", contentID, transcript),
		MaxTokens: 300,
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return resp.Text, nil
}
