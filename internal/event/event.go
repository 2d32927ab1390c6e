package event

import (
	"time"

	"veristream/internal/model"
)

// Type enumerates the events a session can emit.
type Type string

const (
	TypeStatus             Type = "status"              // Session state transition
	TypeExtractionProgress Type = "extraction_progress" // Chunk-level extraction progress
	TypeClaimExtracted     Type = "claim_extracted"     // A claim joined the session record
	TypeVerificationStart  Type = "verification_start"  // Fan-out began for a claim
	TypeClaimVerified      Type = "claim_verified"      // A verdict was synthesized
	TypeComplete           Type = "complete"            // Terminal: session finished
	TypeError              Type = "error"               // Terminal: session failed
)

// Event is one entry in a session's ordered stream. Seq is assigned at
// publish time and is strictly increasing within the session, so a
// consumer can resume after a disconnect by citing the last Seq it saw.
type Event struct {
	Seq       uint64    `json:"seq"`
	SessionID string    `json:"session_id"`
	Type      Type      `json:"type"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// StatusPayload announces a session state transition. Message carries
// the failure detail when the state is terminal ERROR.
type StatusPayload struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// ExtractionProgressPayload reports per-chunk extraction progress.
type ExtractionProgressPayload struct {
	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
	ClaimsFound int `json:"claims_found"`
}

// ClaimExtractedPayload carries a claim entering the session record.
// Every extracted claim is announced, whatever the gate decides;
// Unverified marks claims below the importance threshold, which stay in
// the record but never enter verification.
type ClaimExtractedPayload struct {
	Claim      model.Claim `json:"claim"`
	Unverified bool        `json:"unverified,omitempty"`
}

// VerificationStartPayload announces fan-out for one claim.
type VerificationStartPayload struct {
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Variants    []string          `json:"variants"`
}

// ClaimVerifiedPayload delivers a synthesized verdict. Reused reports
// that the verdict came from the fingerprint cache without a fan-out.
type ClaimVerifiedPayload struct {
	model.VerifiedClaim
	Reused bool `json:"reused,omitempty"`
}

// CompletePayload summarizes a finished session.
type CompletePayload struct {
	ClaimsExtracted int           `json:"claims_extracted"`
	ClaimsVerified  int           `json:"claims_verified"`
	Elapsed         time.Duration `json:"elapsed_ms"`
}

// ErrorPayload carries the failure that terminated a session.
type ErrorPayload struct {
	Message string `json:"message"`
}
