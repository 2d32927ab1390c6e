package session

import (
	"context"
	"sync"
	"time"

	"veristream/internal/model"
)

// State is a session's lifecycle phase. Transitions only move forward;
// a terminal state is never left.
type State string

const (
	StateInit       State = "INIT"
	StateExtracting State = "EXTRACTING"
	StateVerifying  State = "VERIFYING"
	StateComplete   State = "COMPLETE"
	StateError      State = "ERROR"
	StateCancelled  State = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateCancelled
}

var stateRank = map[State]int{
	StateInit:       0,
	StateExtracting: 1,
	StateVerifying:  2,
	StateComplete:   3,
	StateError:      3,
	StateCancelled:  3,
}

// Session is one verification run over one piece of content. All
// mutation goes through the methods; the pipeline goroutine is the
// single writer, with Cancel the only cross-goroutine entry point.
type Session struct {
	ID        string
	ContentID string
	CreatedAt time.Time

	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	claims         []model.Claim
	claimsVerified int
	verified       []model.VerifiedClaim
	errMsg         string
}

func newSession(id, contentID string, cancel context.CancelFunc) *Session {
	return &Session{
		ID:        id,
		ContentID: contentID,
		CreatedAt: time.Now().UTC(),
		cancel:    cancel,
		state:     StateInit,
	}
}

// transition advances the state. Backward moves and moves out of a
// terminal state are rejected.
func (s *Session) transition(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() || stateRank[to] < stateRank[s.state] {
		return false
	}
	s.state = to
	return true
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// recordExtracted appends a claim to the session record. Every
// extracted claim lands here, including ones the gate keeps out of
// verification.
func (s *Session) recordExtracted(c model.Claim) {
	s.mu.Lock()
	s.claims = append(s.claims, c)
	s.mu.Unlock()
}

func (s *Session) recordVerified(vc model.VerifiedClaim) {
	s.mu.Lock()
	s.claimsVerified++
	s.verified = append(s.verified, vc)
	s.mu.Unlock()
}

func (s *Session) recordError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// Cancel requests cooperative cancellation of the pipeline. It is safe
// to call at any time; the pipeline decides the final state.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Snapshot is a consistent read-only view of a session for the API.
type Snapshot struct {
	ID              string                `json:"session_id"`
	ContentID       string                `json:"content_id"`
	State           State                 `json:"state"`
	CreatedAt       time.Time             `json:"created_at"`
	ClaimsExtracted int                   `json:"claims_extracted"`
	ClaimsVerified  int                   `json:"claims_verified"`
	Claims          []model.Claim         `json:"claims,omitempty"`
	Verified        []model.VerifiedClaim `json:"verified_claims,omitempty"`
	Error           string                `json:"error,omitempty"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	claims := make([]model.Claim, len(s.claims))
	copy(claims, s.claims)
	verified := make([]model.VerifiedClaim, len(s.verified))
	copy(verified, s.verified)

	return Snapshot{
		ID:              s.ID,
		ContentID:       s.ContentID,
		State:           s.state,
		CreatedAt:       s.CreatedAt,
		ClaimsExtracted: len(claims),
		ClaimsVerified:  s.claimsVerified,
		Claims:          claims,
		Verified:        verified,
		Error:           s.errMsg,
	}
}
