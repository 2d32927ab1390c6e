package verify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"veristream/internal/model"
	"veristream/internal/search"
)

// scriptedSearcher returns per-variant behavior for fan-out tests.
type scriptedSearcher struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int           // fail the first N calls for a variant
	hang     map[string]bool          // block until the context is done
	findings map[string]*model.EvidenceFinding
}

func newScriptedSearcher() *scriptedSearcher {
	return &scriptedSearcher{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		hang:     make(map[string]bool),
		findings: make(map[string]*model.EvidenceFinding),
	}
}

func (s *scriptedSearcher) Search(ctx context.Context, q search.Query) (*model.EvidenceFinding, error) {
	s.mu.Lock()
	s.calls[q.Variant]++
	fails := s.failures[q.Variant]
	if fails > 0 {
		s.failures[q.Variant]--
	}
	hang := s.hang[q.Variant]
	finding := s.findings[q.Variant]
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fails > 0 {
		return nil, errors.New("search backend unavailable")
	}
	if finding != nil {
		return finding, nil
	}
	return &model.EvidenceFinding{
		Variant: q.Variant,
		Stance:  model.StanceSupports,
		Tier:    model.TierHigh,
	}, nil
}

func (s *scriptedSearcher) callCount(variant string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[variant]
}

func fastConfig() model.VerifyConfig {
	return model.VerifyConfig{
		TaskTimeout:  50 * time.Millisecond,
		ClaimCeiling: 200 * time.Millisecond,
		MaxRetries:   2,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := verifySleepFunc
	verifySleepFunc = func(time.Duration) {}
	t.Cleanup(func() { verifySleepFunc = orig })
}

func testClaim() model.Claim {
	return model.Claim{Text: "The unemployment rate is 3.5%", Importance: 0.9}
}

func TestCoordinator_AllVariantsSucceed(t *testing.T) {
	noSleep(t)
	c := NewCoordinator(newScriptedSearcher(), fastConfig(), 0)

	tasks := c.Verify(context.Background(), testClaim())
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
	for i, want := range VariantNames() {
		if tasks[i].Variant != want {
			t.Errorf("task %d: variant %q, want %q", i, tasks[i].Variant, want)
		}
		if tasks[i].State != model.TaskSucceeded {
			t.Errorf("variant %s: state %v, want succeeded", want, tasks[i].State)
		}
		if tasks[i].Finding == nil {
			t.Errorf("variant %s: no finding", want)
		}
	}
}

func TestCoordinator_PartialFailureTolerated(t *testing.T) {
	noSleep(t)
	s := newScriptedSearcher()
	s.failures["news"] = 10 // never recovers within retry budget
	c := NewCoordinator(s, fastConfig(), 0)

	tasks := c.Verify(context.Background(), testClaim())

	byVariant := make(map[string]model.VerificationTask)
	for _, task := range tasks {
		byVariant[task.Variant] = task
	}
	if byVariant["news"].State != model.TaskFailed {
		t.Errorf("news: state %v, want failed", byVariant["news"].State)
	}
	if byVariant["news"].Err == "" {
		t.Error("failed task should carry an error string")
	}
	for _, name := range []string{"academic", "factcheck", "government", "temporal"} {
		if byVariant[name].State != model.TaskSucceeded {
			t.Errorf("%s: state %v, want succeeded", name, byVariant[name].State)
		}
	}
}

func TestCoordinator_SlowVariantTimesOut(t *testing.T) {
	noSleep(t)
	s := newScriptedSearcher()
	s.hang["temporal"] = true
	c := NewCoordinator(s, fastConfig(), 0)

	tasks := c.Verify(context.Background(), testClaim())
	for _, task := range tasks {
		switch task.Variant {
		case "temporal":
			if task.State != model.TaskTimedOut {
				t.Errorf("temporal: state %v, want timed_out", task.State)
			}
		default:
			if task.State != model.TaskSucceeded {
				t.Errorf("%s: state %v, want succeeded", task.Variant, task.State)
			}
		}
	}
}

func TestWorker_RetriesTransientFailure(t *testing.T) {
	noSleep(t)
	s := newScriptedSearcher()
	s.failures["government"] = 2 // succeeds on the third attempt

	w := NewWorker(Variants()[3], s, fastConfig())
	task := w.Run(context.Background(), testClaim())

	if task.State != model.TaskSucceeded {
		t.Fatalf("state %v, want succeeded after retries", task.State)
	}
	if got := s.callCount("government"); got != 3 {
		t.Errorf("call count %d, want 3", got)
	}
}

func TestWorker_TimeoutIsTerminal(t *testing.T) {
	noSleep(t)
	s := newScriptedSearcher()
	s.hang["news"] = true

	w := NewWorker(Variants()[0], s, fastConfig())
	task := w.Run(context.Background(), testClaim())

	if task.State != model.TaskTimedOut {
		t.Fatalf("state %v, want timed_out", task.State)
	}
	// A per-attempt timeout must not be retried.
	if got := s.callCount("news"); got != 1 {
		t.Errorf("call count %d, want 1", got)
	}
}

func TestCoordinator_CancelledBeforeSlot(t *testing.T) {
	c := NewCoordinator(newScriptedSearcher(), fastConfig(), 1)
	c.global <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := c.Verify(ctx, testClaim())
	if len(tasks) != 5 {
		t.Fatalf("expected 5 aborted tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.State != model.TaskFailed {
			t.Errorf("%s: state %v, want failed", task.Variant, task.State)
		}
	}
}

func TestVariantWeight(t *testing.T) {
	if w := VariantWeight("government"); w != 3.0 {
		t.Errorf("government weight %v, want 3.0", w)
	}
	if w := VariantWeight("nonsense"); w != 1.0 {
		t.Errorf("unknown variant weight %v, want 1.0", w)
	}
}
