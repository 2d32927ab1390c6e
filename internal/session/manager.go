package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"veristream/internal/event"
	"veristream/internal/gate"
	"veristream/internal/model"
	"veristream/internal/sources"
	"veristream/internal/synth"
	"veristream/internal/transcript"
	"veristream/internal/verify"
)

// Extractor turns one transcript chunk into candidate claims.
type Extractor interface {
	Extract(ctx context.Context, contentID string, chunk model.TranscriptChunk, summary string) ([]model.Claim, error)
}

// Summarizer produces a short transcript summary used as extraction
// context. Optional; a nil Summarizer skips the step.
type Summarizer interface {
	Summarize(ctx context.Context, contentID, transcript string) (string, error)
}

// Verifier runs the full verification fan-out for one claim.
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim) []model.VerificationTask
}

// Deps are the pipeline stages the manager orchestrates.
type Deps struct {
	Source     transcript.Source
	Chunker    *transcript.Chunker
	Summarizer Summarizer // optional
	Extractor  Extractor
	Gate       *gate.Gate
	Verifier   Verifier
	Synth      *synth.Synthesizer
	Validator  *sources.Validator // optional
	Publisher  *event.Publisher
	Logger     *slog.Logger
}

// Manager owns the session registry and runs one pipeline goroutine per
// session. Terminal sessions stay queryable for a grace period so late
// consumers can fetch results or replay events, then expire.
type Manager struct {
	cfg  *model.Config
	deps Deps
	log  *slog.Logger

	sessions *cache.Cache
}

// NewManager creates a session manager.
func NewManager(cfg *model.Config, deps Deps) *Manager {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	registry := cache.New(cache.NoExpiration, time.Minute)
	m := &Manager{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		sessions: registry,
	}
	registry.OnEvicted(func(id string, _ any) {
		deps.Publisher.Remove(id)
	})
	return m
}

// Start creates a session for the content id and launches its pipeline.
// The returned snapshot reflects the initial state; progress arrives on
// the session's event stream.
func (m *Manager) Start(contentID string) (Snapshot, error) {
	if strings.TrimSpace(contentID) == "" {
		return Snapshot{}, ErrInvalidRequest
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(uuid.NewString(), contentID, cancel)
	m.sessions.Set(sess.ID, sess, cache.NoExpiration)
	m.deps.Publisher.Stream(sess.ID)

	m.log.Info("session started", "session_id", sess.ID, "content_id", contentID)
	go m.run(ctx, sess)

	return sess.Snapshot(), nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (Snapshot, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Cancel requests cancellation of a running session. Idempotent: a
// session that already reached a terminal state is a no-op.
func (m *Manager) Cancel(id string) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	if sess.State().Terminal() {
		return nil
	}
	m.log.Info("session cancel requested", "session_id", id)
	sess.Cancel()
	return nil
}

// Subscribe attaches to the session's event stream, replaying retained
// events after fromSeq first.
func (m *Manager) Subscribe(id string, fromSeq uint64) (<-chan event.Event, func(), error) {
	if _, err := m.lookup(id); err != nil {
		return nil, nil, err
	}
	ch, cancel := m.deps.Publisher.Stream(id).Subscribe(fromSeq)
	return ch, cancel, nil
}

func (m *Manager) lookup(id string) (*Session, error) {
	entry, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.(*Session), nil
}

// retire re-registers a terminal session with the grace TTL; eviction
// drops its event stream.
func (m *Manager) retire(sess *Session) {
	grace := m.cfg.Events.SessionGrace
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	m.sessions.Set(sess.ID, sess, grace)
}

func (m *Manager) run(ctx context.Context, sess *Session) {
	stream := m.deps.Publisher.Stream(sess.ID)
	start := time.Now()

	setState := func(st State) {
		if sess.transition(st) {
			stream.Publish(event.TypeStatus, event.StatusPayload{State: string(st)})
		}
	}

	setState(StateExtracting)

	spans, err := m.deps.Source.Fetch(ctx, sess.ContentID)
	if err != nil {
		if errors.Is(err, transcript.ErrNoCaptions) {
			err = fmt.Errorf("%w: %s", ErrContentNotFound, sess.ContentID)
		}
		m.fail(sess, stream, "fetch transcript: "+err.Error())
		return
	}

	summary := m.summarize(ctx, sess, spans)
	chunks := m.deps.Chunker.Chunk(spans)

	sessionGate := m.deps.Gate.Session()
	extractSem := make(chan struct{}, max(1, m.cfg.Limits.ExtractionsPerSession))
	fanoutSem := make(chan struct{}, max(1, m.cfg.Limits.FanoutsPerSession))

	var claimWG sync.WaitGroup
	var chunkWG sync.WaitGroup
	for _, chunk := range chunks {
		chunkWG.Add(1)
		go func(chunk model.TranscriptChunk) {
			defer chunkWG.Done()
			m.extractChunk(ctx, sess, stream, sessionGate, extractSem, fanoutSem, &claimWG, chunk, len(chunks), summary)
		}(chunk)
	}
	chunkWG.Wait()

	setState(StateVerifying)
	claimWG.Wait()

	if ctx.Err() != nil {
		if sess.transition(StateCancelled) {
			stream.Publish(event.TypeStatus, event.StatusPayload{State: string(StateCancelled)})
		}
		m.log.Info("session cancelled", "session_id", sess.ID)
		stream.Close()
		m.retire(sess)
		return
	}

	snap := sess.Snapshot()
	if sess.transition(StateComplete) {
		stream.Publish(event.TypeStatus, event.StatusPayload{State: string(StateComplete)})
		stream.Publish(event.TypeComplete, event.CompletePayload{
			ClaimsExtracted: snap.ClaimsExtracted,
			ClaimsVerified:  snap.ClaimsVerified,
			Elapsed:         time.Since(start) / time.Millisecond,
		})
	}
	m.log.Info("session complete",
		"session_id", sess.ID,
		"claims_extracted", snap.ClaimsExtracted,
		"claims_verified", snap.ClaimsVerified,
		"elapsed", time.Since(start))
	stream.Close()
	m.retire(sess)
}

func (m *Manager) summarize(ctx context.Context, sess *Session, spans []model.CaptionSpan) string {
	if m.deps.Summarizer == nil || !m.cfg.LLM.Summary {
		return ""
	}

	var b strings.Builder
	for _, span := range spans {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(span.Text)
	}

	summary, err := m.deps.Summarizer.Summarize(ctx, sess.ContentID, b.String())
	if err != nil {
		// Extraction proceeds without context rather than failing the session.
		m.log.Warn("transcript summary failed", "session_id", sess.ID, "error", err)
		return ""
	}
	return summary
}

func (m *Manager) extractChunk(
	ctx context.Context,
	sess *Session,
	stream *event.Stream,
	sessionGate *gate.SessionGate,
	extractSem, fanoutSem chan struct{},
	claimWG *sync.WaitGroup,
	chunk model.TranscriptChunk,
	totalChunks int,
	summary string,
) {
	select {
	case extractSem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	claims, err := m.deps.Extractor.Extract(ctx, sess.ContentID, chunk, summary)
	<-extractSem

	if err != nil {
		// One failed chunk costs its claims, not the session.
		m.log.Warn("chunk extraction failed", "session_id", sess.ID, "chunk", chunk.Index, "error", err)
	}

	stream.Publish(event.TypeExtractionProgress, event.ExtractionProgressPayload{
		ChunkIndex:  chunk.Index,
		TotalChunks: totalChunks,
		ClaimsFound: len(claims),
	})

	for _, claim := range claims {
		res := sessionGate.Evaluate(claim)

		// Every extracted claim joins the record and the stream, even
		// when the gate keeps it out of verification.
		sess.recordExtracted(claim)
		stream.Publish(event.TypeClaimExtracted, event.ClaimExtractedPayload{
			Claim:      claim,
			Unverified: res.Decision == gate.RejectLowImportance,
		})

		switch res.Decision {
		case gate.Admit:
			claimWG.Add(1)
			go m.verifyClaim(ctx, sess, stream, sessionGate, fanoutSem, claimWG, claim)
		case gate.ReuseVerdict:
			m.deliverReused(sess, stream, claim, *res.Verdict)
			for _, dup := range sessionGate.Settle(claim.Fingerprint(), *res.Verdict) {
				m.deliverReused(sess, stream, dup, *res.Verdict)
			}
		case gate.RejectDuplicate:
			if v := sessionGate.Defer(claim); v != nil {
				m.deliverReused(sess, stream, claim, *v)
			}
		default:
			m.log.Debug("claim below importance threshold",
				"session_id", sess.ID,
				"importance", claim.Importance)
		}
	}
}

// deliverReused records and announces a verdict obtained without a new
// fan-out, either from the cross-session cache or from a duplicate's
// first occurrence.
func (m *Manager) deliverReused(sess *Session, stream *event.Stream, claim model.Claim, v model.Verdict) {
	vc := model.VerifiedClaim{Claim: claim, Verdict: v}
	sess.recordVerified(vc)
	stream.Publish(event.TypeClaimVerified, event.ClaimVerifiedPayload{VerifiedClaim: vc, Reused: true})
}

func (m *Manager) verifyClaim(
	ctx context.Context,
	sess *Session,
	stream *event.Stream,
	sessionGate *gate.SessionGate,
	fanoutSem chan struct{},
	claimWG *sync.WaitGroup,
	claim model.Claim,
) {
	defer claimWG.Done()

	select {
	case fanoutSem <- struct{}{}:
		defer func() { <-fanoutSem }()
	case <-ctx.Done():
		return
	}

	stream.Publish(event.TypeVerificationStart, event.VerificationStartPayload{
		Fingerprint: claim.Fingerprint(),
		Variants:    verify.VariantNames(),
	})

	tasks := m.deps.Verifier.Verify(ctx, claim)

	if m.deps.Validator != nil && m.cfg.Verify.ValidateCited {
		for i := range tasks {
			if tasks[i].Finding != nil {
				tasks[i].Finding.Sources = m.deps.Validator.Validate(ctx, tasks[i].Finding.Sources)
			}
		}
	}

	if ctx.Err() != nil {
		return
	}

	verdict := m.deps.Synth.Synthesize(claim, tasks)
	m.deps.Gate.StoreVerdict(claim.Fingerprint(), verdict)

	vc := model.VerifiedClaim{Claim: claim, Verdict: verdict}
	sess.recordVerified(vc)
	stream.Publish(event.TypeClaimVerified, event.ClaimVerifiedPayload{VerifiedClaim: vc})

	// Duplicates of this fingerprint that arrived mid-flight share the
	// verdict instead of having spawned their own fan-outs.
	for _, dup := range sessionGate.Settle(claim.Fingerprint(), verdict) {
		m.deliverReused(sess, stream, dup, verdict)
	}
}

func (m *Manager) fail(sess *Session, stream *event.Stream, msg string) {
	sess.recordError(msg)
	if sess.transition(StateError) {
		stream.Publish(event.TypeStatus, event.StatusPayload{State: string(StateError), Message: msg})
		stream.Publish(event.TypeError, event.ErrorPayload{Message: msg})
	}
	m.log.Error("session failed", "session_id", sess.ID, "error", msg)
	stream.Close()
	m.retire(sess)
}
