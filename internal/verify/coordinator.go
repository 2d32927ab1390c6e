package verify

import (
	"context"
	"sync"
	"time"

	"veristream/internal/model"
	"veristream/internal/search"
)

// Coordinator fans one claim out to every worker variant concurrently
// and collects whatever terminal tasks come back. One Verify call is
// one fan-out; the global semaphore bounds fan-outs across all
// sessions so a burst of sessions cannot stampede the search capability.
type Coordinator struct {
	searcher search.Searcher
	variants []Variant
	cfg      model.VerifyConfig
	global   chan struct{}
}

// NewCoordinator creates a coordinator over the standard variants.
// globalFanouts <= 0 disables the global bound.
func NewCoordinator(searcher search.Searcher, cfg model.VerifyConfig, globalFanouts int) *Coordinator {
	c := &Coordinator{
		searcher: searcher,
		variants: Variants(),
		cfg:      cfg,
	}
	if globalFanouts > 0 {
		c.global = make(chan struct{}, globalFanouts)
	}
	return c
}

// Verify runs the full fan-out for one claim and returns one terminal
// task per variant, in variant order. Individual variant failures and
// timeouts do not abort the fan-out; the synthesizer decides what the
// surviving findings are worth. The whole fan-out is bounded by the
// per-claim ceiling.
func (c *Coordinator) Verify(ctx context.Context, claim model.Claim) []model.VerificationTask {
	if c.global != nil {
		select {
		case c.global <- struct{}{}:
			defer func() { <-c.global }()
		case <-ctx.Done():
			return c.allAborted(claim, ctx.Err())
		}
	}

	ceiling := c.cfg.ClaimCeiling
	if ceiling <= 0 {
		ceiling = 10 * time.Second
	}
	claimCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	tasks := make([]model.VerificationTask, len(c.variants))
	var wg sync.WaitGroup
	for i, variant := range c.variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()
			tasks[idx] = NewWorker(v, c.searcher, c.cfg).Run(claimCtx, claim)
		}(i, variant)
	}
	wg.Wait()

	return tasks
}

// allAborted marks every variant failed without running any of them.
func (c *Coordinator) allAborted(claim model.Claim, err error) []model.VerificationTask {
	fp := claim.Fingerprint()
	tasks := make([]model.VerificationTask, len(c.variants))
	for i, v := range c.variants {
		tasks[i] = model.VerificationTask{
			Fingerprint: fp,
			Variant:     v.Name,
			State:       model.TaskFailed,
			Err:         err.Error(),
		}
	}
	return tasks
}

// VariantWeight returns the synthesis weight for a variant name, or the
// temporal weight for unknown names so stray findings never dominate.
func VariantWeight(name string) float64 {
	for _, v := range Variants() {
		if v.Name == name {
			return v.Weight
		}
	}
	return 1.0
}
