package verify

import (
	"context"
	"errors"
	"time"

	"veristream/internal/model"
	"veristream/internal/search"
)

// verifySleepFunc is the sleep function used between retries (injectable for tests)
var verifySleepFunc = time.Sleep

// Worker runs one variant's evidence search for one claim. All five
// variants share this type; the Variant descriptor carries everything
// that differs between them.
type Worker struct {
	variant    Variant
	searcher   search.Searcher
	timeout    time.Duration
	maxRetries int
}

// NewWorker creates a worker for the given variant.
func NewWorker(variant Variant, searcher search.Searcher, cfg model.VerifyConfig) *Worker {
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Worker{
		variant:    variant,
		searcher:   searcher,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
	}
}

// Run executes the variant's search and always returns a terminal task.
// Transient search failures are retried with backoff; a per-attempt
// timeout is terminal immediately since retrying it would eat the
// claim's overall ceiling.
func (w *Worker) Run(ctx context.Context, claim model.Claim) model.VerificationTask {
	task := model.VerificationTask{
		Fingerprint: claim.Fingerprint(),
		Variant:     w.variant.Name,
		State:       model.TaskRunning,
	}

	query := search.Query{
		Variant:          w.variant.Name,
		System:           w.variant.System,
		PreferredDomains: w.variant.PreferredDomains,
		Claim:            claim,
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			verifySleepFunc(backoff)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
		finding, err := w.searcher.Search(attemptCtx, query)
		cancel()

		if err == nil {
			task.State = model.TaskSucceeded
			task.Finding = finding
			return task
		}
		lastErr = err

		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	task.Err = lastErr.Error()
	if errors.Is(lastErr, context.DeadlineExceeded) {
		task.State = model.TaskTimedOut
	} else {
		task.State = model.TaskFailed
	}
	return task
}
