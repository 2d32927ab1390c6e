package model

// CredibilityTier classifies the trustworthiness of cited sources.
type CredibilityTier int

const (
	TierUnknown CredibilityTier = 0 // Not yet classified
	TierHigh    CredibilityTier = 1 // Government statistics, peer-reviewed research, official records
	TierMedium  CredibilityTier = 2 // Established news outlets, major fact-check organizations
	TierLow     CredibilityTier = 3 // Blogs, forums, unattributed pages
)

func (t CredibilityTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParseTier converts a tier string ("high", "medium", "low") to a
// CredibilityTier. Anything unrecognized, including the empty string,
// is TierUnknown so callers can tell "no signal" from "rated low".
func ParseTier(s string) CredibilityTier {
	switch s {
	case "high", "1":
		return TierHigh
	case "medium", "2":
		return TierMedium
	case "low", "3":
		return TierLow
	default:
		return TierUnknown
	}
}

// Stance is a worker's directional reading of the evidence it gathered.
type Stance string

const (
	StanceSupports     Stance = "supports"
	StanceRefutes      Stance = "refutes"
	StanceMixed        Stance = "mixed"
	StanceInconclusive Stance = "inconclusive"
)

// SourceCitation is one source referenced by an evidence finding.
type SourceCitation struct {
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Quote      string          `json:"quote,omitempty"`       // Supporting excerpt
	Tier       CredibilityTier `json:"tier"`                  // Classified credibility
	Accessible *bool           `json:"accessible,omitempty"`  // Liveness check result, when validation ran
}

// EvidenceFinding is the output of one verification worker: a short
// natural-language assessment plus the sources that back it.
type EvidenceFinding struct {
	Variant    string           `json:"variant"`    // Worker variant that produced this finding
	Stance     Stance           `json:"stance"`     // Directional reading of the evidence
	Assessment string           `json:"assessment"` // Short natural-language assessment
	Tier       CredibilityTier  `json:"tier"`       // Best credibility tier among cited sources
	Sources    []SourceCitation `json:"sources"`
}

// TaskState tracks one verification task through its lifecycle.
// Transitions are monotonic: pending -> running -> terminal.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskTimedOut  TaskState = "timed_out"
)

// Terminal reports whether the state is one of the three terminal states.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskTimedOut
}

// VerificationTask records one worker-variant run for one claim.
type VerificationTask struct {
	Fingerprint Fingerprint      `json:"fingerprint"`
	Variant     string           `json:"variant"`
	State       TaskState        `json:"state"`
	Finding     *EvidenceFinding `json:"finding,omitempty"` // Set when State == succeeded
	Err         string           `json:"error,omitempty"`   // Set when State is failed or timed_out
}
