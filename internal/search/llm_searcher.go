package search

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"veristream/internal/llm"
	"veristream/internal/model"
	"veristream/internal/sources"
	"veristream/internal/worker"
)

// LLMSearcher implements the evidence-search capability on top of a
// search-enabled LLM provider. The variant's framing prompt selects the
// class of sources; the searcher parses the structured finding and
// classifies citation credibility itself, never trusting the model's
// self-rating above the domain classifier.
type LLMSearcher struct {
	provider   llm.Provider
	classifier *sources.Classifier
	limiter    *worker.Limiter
}

// NewLLMSearcher creates an LLM-backed evidence searcher.
func NewLLMSearcher(provider llm.Provider, classifier *sources.Classifier, limiter *worker.Limiter) *LLMSearcher {
	return &LLMSearcher{
		provider:   provider,
		classifier: classifier,
		limiter:    limiter,
	}
}

// findingPayload is the wire shape the model is asked to produce.
type findingPayload struct {
	Stance     string `json:"stance"`
	Assessment string `json:"assessment"`
	Sources    []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Quote       string `json:"quote"`
		Credibility string `json:"credibility"`
	} `json:"sources"`
}

// Search runs one evidence search for the query's variant.
func (s *LLMSearcher) Search(ctx context.Context, q Query) (*model.EvidenceFinding, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.provider.Name()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		System: q.System,
		Prompt: buildSearchPrompt(q),
	})
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", q.Variant, err)
	}

	payload, err := parseFinding(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse %s finding: %w", q.Variant, err)
	}

	finding := &model.EvidenceFinding{
		Variant:    q.Variant,
		Stance:     parseStance(payload.Stance),
		Assessment: strings.TrimSpace(payload.Assessment),
	}

	for _, src := range payload.Sources {
		url := strings.TrimSpace(src.URL)
		if url == "" {
			continue
		}

		tier := s.classifier.Classify(url)
		// The model's self-rating may demote, never promote. An absent
		// or unparseable rating leaves the classifier's tier alone.
		if claimed := model.ParseTier(src.Credibility); claimed != model.TierUnknown && claimed > tier {
			tier = claimed
		}

		finding.Sources = append(finding.Sources, model.SourceCitation{
			Title: strings.TrimSpace(src.Title),
			URL:   url,
			Quote: strings.TrimSpace(src.Quote),
			Tier:  tier,
		})
	}

	finding.Tier = bestTier(finding.Sources)
	return finding, nil
}

func buildSearchPrompt(q Query) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Verify this claim: %s\n", q.Claim.Text)
	if q.Claim.Quote != "" {
		fmt.Fprintf(&b, "Verbatim transcript quote: %q\n", q.Claim.Quote)
	}
	if q.Claim.Speaker != "" {
		fmt.Fprintf(&b, "Attributed speaker: %s\n", q.Claim.Speaker)
	}
	if len(q.PreferredDomains) > 0 {
		fmt.Fprintf(&b, "Prefer sources from: %s\n", strings.Join(q.PreferredDomains, ", "))
	}
	b.WriteString(`
Report what your search finds, even if it contradicts your expectations.
Return valid JSON only:
{"stance": "supports"|"refutes"|"mixed"|"inconclusive",
 "assessment": "2-3 sentence natural-language assessment",
 "sources": [{"title": str, "url": str, "quote": str, "credibility": "high"|"medium"|"low"}...]}`)

	return b.String()
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

func parseFinding(text string) (*findingPayload, error) {
	var payload findingPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return &payload, nil
	}

	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in search output")
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return nil, fmt.Errorf("decode search output: %w", err)
	}
	return &payload, nil
}

func parseStance(s string) model.Stance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supports", "support":
		return model.StanceSupports
	case "refutes", "refute":
		return model.StanceRefutes
	case "mixed":
		return model.StanceMixed
	default:
		return model.StanceInconclusive
	}
}

// bestTier returns the strongest credibility tier among the citations.
func bestTier(citations []model.SourceCitation) model.CredibilityTier {
	best := model.TierUnknown
	for _, c := range citations {
		if c.Tier == model.TierUnknown {
			continue
		}
		if best == model.TierUnknown || c.Tier < best {
			best = c.Tier
		}
	}
	return best
}
