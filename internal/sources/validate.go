package sources

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"veristream/internal/model"
)

// Validator liveness-checks cited URLs concurrently. Inaccessible
// sources keep their citation entry; the synthesizer demotes them
// rather than dropping evidence silently.
type Validator struct {
	httpClient *http.Client
	maxWorkers int
	robots     *RobotsChecker
}

// NewValidator creates a citation validator.
func NewValidator(cfg model.SourcesConfig, maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	timeout := cfg.ValidateTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Validator{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		robots:     NewRobotsChecker(cfg.UserAgent, timeout),
	}
}

// Validate probes each citation URL with a HEAD request and fills the
// Accessible field in place on a copy of the slice. Citations blocked
// by robots.txt are left unprobed (Accessible stays nil).
func (v *Validator) Validate(ctx context.Context, citations []model.SourceCitation) []model.SourceCitation {
	if len(citations) == 0 {
		return citations
	}

	out := make([]model.SourceCitation, len(citations))
	copy(out, citations)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.maxWorkers)

	for i := range out {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if !v.robots.Allowed(ctx, out[idx].URL) {
				return
			}

			accessible := v.probe(ctx, out[idx].URL)
			out[idx].Accessible = &accessible
		}(i)
	}

	wg.Wait()
	return out
}

func (v *Validator) probe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
