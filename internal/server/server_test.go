package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"veristream/internal/event"
	"veristream/internal/gate"
	"veristream/internal/model"
	"veristream/internal/session"
	"veristream/internal/synth"
	"veristream/internal/transcript"
)

type fakeSource struct{}

func (fakeSource) Fetch(ctx context.Context, contentID string) ([]model.CaptionSpan, error) {
	return []model.CaptionSpan{
		{Text: "The unemployment rate is 3.5 percent.", StartS: 0, DurationS: 4},
	}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, contentID string, chunk model.TranscriptChunk, summary string) ([]model.Claim, error) {
	return []model.Claim{
		{ContentID: contentID, Text: "The unemployment rate is 3.5%", Importance: 0.9},
	}, nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, claim model.Claim) []model.VerificationTask {
	return []model.VerificationTask{{
		Fingerprint: claim.Fingerprint(),
		Variant:     "government",
		State:       model.TaskSucceeded,
		Finding: &model.EvidenceFinding{
			Variant: "government",
			Stance:  model.StanceSupports,
			Tier:    model.TierHigh,
			Sources: []model.SourceCitation{{URL: "https://bls.gov/empsit", Tier: model.TierHigh}},
		},
	}}
}

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.LLM.Summary = false

	mgr := session.NewManager(cfg, session.Deps{
		Source:    fakeSource{},
		Chunker:   transcript.NewChunker(cfg.Chunker),
		Extractor: fakeExtractor{},
		Gate:      gate.New(cfg.Gate),
		Verifier:  fakeVerifier{},
		Synth:     synth.New(cfg.Verify),
		Publisher: event.NewPublisher(cfg.Events),
		Logger:    slog.New(slog.DiscardHandler),
	})

	srv := New(cfg.Server, mgr, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mgr
}

func createSession(t *testing.T, ts *httptest.Server, contentID string) session.Snapshot {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"content_id": contentID})
	resp, err := http.Post(ts.URL+"/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post session: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("create status %d, want 202", resp.StatusCode)
	}
	var snap session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func waitComplete(t *testing.T, mgr *session.Manager, id string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		snap, err := mgr.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if snap.State.Terminal() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session stuck at %s", snap.State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	ts, mgr := newTestServer(t)

	snap := createSession(t, ts, "content-1")
	if snap.ID == "" {
		t.Fatal("snapshot missing session id")
	}
	waitComplete(t, mgr, snap.ID)

	resp, err := http.Get(ts.URL + "/sessions/" + snap.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}

	var final session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if final.State != session.StateComplete {
		t.Errorf("state %s, want COMPLETE", final.State)
	}
	if final.ClaimsVerified != 1 {
		t.Errorf("claims verified %d, want 1", final.ClaimsVerified)
	}
}

func TestServer_CreateSessionValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed JSON", "{nope", http.StatusBadRequest},
		{"empty content id", `{"content_id": ""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/sessions", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_UnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/sessions/00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestServer_CancelIdempotent(t *testing.T) {
	ts, mgr := newTestServer(t)

	snap := createSession(t, ts, "content-1")
	waitComplete(t, mgr, snap.ID)

	// Cancelling a finished session is a no-op, acknowledged both times.
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+snap.ID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("delete %d: status %d, want 202", i, resp.StatusCode)
		}
	}

	final, err := mgr.Get(snap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.State != session.StateComplete {
		t.Errorf("state %s, want COMPLETE untouched by no-op cancel", final.State)
	}
}

func TestServer_WebSocketStream(t *testing.T) {
	ts, mgr := newTestServer(t)

	snap := createSession(t, ts, "content-1")
	waitComplete(t, mgr, snap.ID)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + snap.ID
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	type wireEvent struct {
		Seq  uint64 `json:"seq"`
		Type string `json:"type"`
	}

	var (
		lastSeq     uint64
		sawComplete bool
	)
	for !sawComplete {
		var ev wireEvent
		if err := websocket.JSON.Receive(conn, &ev); err != nil {
			t.Fatalf("receive (last seq %d): %v", lastSeq, err)
		}
		if ev.Seq <= lastSeq {
			t.Errorf("sequence regressed: %d after %d", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
		if ev.Type == string(event.TypeComplete) {
			sawComplete = true
		}
	}
}

func TestServer_WebSocketResume(t *testing.T) {
	ts, mgr := newTestServer(t)

	snap := createSession(t, ts, "content-1")
	waitComplete(t, mgr, snap.ID)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + snap.ID + "?from_seq=2"
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	var ev struct {
		Seq uint64 `json:"seq"`
	}
	if err := websocket.JSON.Receive(conn, &ev); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if ev.Seq != 3 {
		t.Errorf("first resumed seq %d, want 3", ev.Seq)
	}
}
