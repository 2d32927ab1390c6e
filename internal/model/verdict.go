package model

// VerdictLabel is the synthesized outcome classification for a claim.
type VerdictLabel string

const (
	VerdictTrue          VerdictLabel = "TRUE"
	VerdictFalse         VerdictLabel = "FALSE"
	VerdictMisleading    VerdictLabel = "MISLEADING"
	VerdictPartiallyTrue VerdictLabel = "PARTIALLY_TRUE"
	VerdictUnverifiable  VerdictLabel = "UNVERIFIABLE"
)

// Verdict is the synthesized outcome for one claim: classification,
// confidence in [0,10], explanation, and a deduplicated source list
// ordered by credibility. It is only produced after every verification
// task for the claim has reached a terminal state; workers that failed
// or timed out are recorded in Absent rather than silently dropped.
type Verdict struct {
	Label       VerdictLabel     `json:"verdict"`
	Confidence  float64          `json:"confidence"` // [0,10]; 0 only for zero/near-zero evidence
	Explanation string           `json:"explanation"`
	Sources     []SourceCitation `json:"sources"`
	Absent      []string         `json:"absent_workers,omitempty"` // Variants that failed or timed out
}

// VerifiedClaim pairs an immutable claim with its verdict for delivery.
type VerifiedClaim struct {
	Claim   Claim   `json:"claim"`
	Verdict Verdict `json:"verdict"`
}
