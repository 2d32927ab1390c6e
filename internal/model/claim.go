package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Claim represents a verifiable assertion extracted from a transcript span.
// Claims are immutable once extracted; verification attaches a Verdict
// alongside the claim, it never edits this record.
type Claim struct {
	ContentID  string  `json:"content_id"`        // Identifier of the source content (e.g., video ID)
	StartS     float64 `json:"start_s"`           // Start time (seconds) of the span containing the claim
	EndS       float64 `json:"end_s"`             // End time (seconds) of the span containing the claim
	Quote      string  `json:"quote,omitempty"`   // Verbatim quote from the transcript
	Text       string  `json:"claim_text"`        // Atomic, normalized claim text (what to verify)
	Speaker    string  `json:"speaker,omitempty"` // Attributed speaker, if known
	Importance float64 `json:"importance_score"`  // Priority signal in [0,1]
	ChunkIndex int     `json:"chunk_index"`       // Chunk the claim was extracted from
}

// Fingerprint is a deduplication key derived from normalized claim content.
// Claims sharing a fingerprint are verified at most once per session.
type Fingerprint string

// Fingerprint derives the deduplication key for the claim.
func (c Claim) Fingerprint() Fingerprint {
	hash := sha256.Sum256([]byte(NormalizeClaimText(c.Text)))
	return Fingerprint(hex.EncodeToString(hash[:]))
}

// NormalizeClaimText lowercases, strips punctuation, and collapses
// whitespace so near-identical phrasings map to the same fingerprint.
func NormalizeClaimText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
