package search

import (
	"context"

	"veristream/internal/model"
)

// Query frames one evidence search for a claim: the worker variant's
// system prompt, its preferred source domains, and the claim itself.
type Query struct {
	Variant          string   // Worker variant tag (news, academic, ...)
	System           string   // Variant-specific framing prompt
	PreferredDomains []string // Source classes the variant is instructed to prefer
	Claim            model.Claim
}

// Searcher is the evidence-search capability consumed by verification
// workers. It must be callable independently and concurrently for each
// variant. Implementations never mutate the claim.
type Searcher interface {
	Search(ctx context.Context, q Query) (*model.EvidenceFinding, error)
}
