package gate

import (
	"sync"

	cache "github.com/patrickmn/go-cache"

	"veristream/internal/model"
)

// Decision is the gate's ruling on one extracted claim.
type Decision int

const (
	// Admit sends the claim into verification fan-out.
	Admit Decision = iota
	// RejectLowImportance drops the claim below the importance threshold.
	RejectLowImportance
	// RejectDuplicate marks a claim whose fingerprint was already seen
	// in this session. The duplicate does not spawn new work; Defer
	// parks it until the first occurrence's verdict lands.
	RejectDuplicate
	// ReuseVerdict short-circuits verification with a cached verdict for
	// the same fingerprint.
	ReuseVerdict
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case RejectLowImportance:
		return "reject_low_importance"
	case RejectDuplicate:
		return "reject_duplicate"
	case ReuseVerdict:
		return "reuse_verdict"
	default:
		return "unknown"
	}
}

// Result carries the gate decision and, for ReuseVerdict, the verdict
// that was reused.
type Result struct {
	Decision Decision
	Verdict  *model.Verdict
}

// Gate filters extracted claims before they reach verification. The
// verdict cache is shared across sessions so a claim verified once is
// not re-verified while its entry lives; per-session duplicate
// suppression comes from Session().
type Gate struct {
	threshold float64
	verdicts  *cache.Cache
}

// New creates a gate from config. A zero threshold admits everything;
// a zero ReuseTTL disables verdict reuse entirely.
func New(cfg model.GateConfig) *Gate {
	g := &Gate{threshold: cfg.ImportanceThreshold}
	if cfg.ReuseTTL > 0 {
		g.verdicts = cache.New(cfg.ReuseTTL, cfg.ReuseTTL/2)
	}
	return g
}

// StoreVerdict records a completed verdict for fingerprint reuse.
func (g *Gate) StoreVerdict(fp model.Fingerprint, v model.Verdict) {
	if g.verdicts == nil {
		return
	}
	g.verdicts.SetDefault(string(fp), v)
}

func (g *Gate) lookupVerdict(fp model.Fingerprint) *model.Verdict {
	if g.verdicts == nil {
		return nil
	}
	entry, ok := g.verdicts.Get(string(fp))
	if !ok {
		return nil
	}
	v := entry.(model.Verdict)
	return &v
}

// Session returns a per-session view of the gate with its own seen set.
func (g *Gate) Session() *SessionGate {
	return &SessionGate{
		gate:    g,
		seen:    make(map[model.Fingerprint]struct{}),
		settled: make(map[model.Fingerprint]model.Verdict),
		waiting: make(map[model.Fingerprint][]model.Claim),
	}
}

// SessionGate applies the gate for one session. Safe for concurrent use
// by the extraction workers feeding it.
type SessionGate struct {
	gate *Gate

	mu      sync.Mutex
	seen    map[model.Fingerprint]struct{}
	settled map[model.Fingerprint]model.Verdict
	waiting map[model.Fingerprint][]model.Claim
}

// Evaluate rules on one claim. Ordering matters: importance is checked
// first so low-importance duplicates never consume a seen-set entry,
// then the session seen set, then the shared verdict cache.
func (s *SessionGate) Evaluate(c model.Claim) Result {
	if c.Importance < s.gate.threshold {
		return Result{Decision: RejectLowImportance}
	}

	fp := c.Fingerprint()

	s.mu.Lock()
	_, dup := s.seen[fp]
	if !dup {
		s.seen[fp] = struct{}{}
	}
	s.mu.Unlock()

	if dup {
		return Result{Decision: RejectDuplicate}
	}

	if v := s.gate.lookupVerdict(fp); v != nil {
		return Result{Decision: ReuseVerdict, Verdict: v}
	}

	return Result{Decision: Admit}
}

// Defer parks a duplicate claim until its fingerprint's first
// occurrence produces a verdict. If that verdict already landed it is
// returned immediately; otherwise nil, and the claim will be handed
// back by Settle.
func (s *SessionGate) Defer(c model.Claim) *model.Verdict {
	fp := c.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.settled[fp]; ok {
		return &v
	}
	s.waiting[fp] = append(s.waiting[fp], c)
	return nil
}

// Settle records the verdict for a fingerprint and returns the
// duplicate claims that were parked waiting on it.
func (s *SessionGate) Settle(fp model.Fingerprint, v model.Verdict) []model.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settled[fp] = v
	parked := s.waiting[fp]
	delete(s.waiting, fp)
	return parked
}
