package sources

import (
	"net/url"
	"strings"

	"veristream/internal/model"
)

// Classifier maps cited URLs to credibility tiers. Used when the
// evidence-search capability returns no credibility signal of its own,
// and to demote sources the worker over-rated.
type Classifier struct {
	config    *model.SourcesConfig
	highMap   map[string]bool
	mediumMap map[string]bool
}

// NewClassifier creates a classifier from configuration.
func NewClassifier(config *model.SourcesConfig) *Classifier {
	if config == nil {
		config = &model.DefaultConfig().Sources
	}

	c := &Classifier{
		config:    config,
		highMap:   make(map[string]bool),
		mediumMap: make(map[string]bool),
	}

	for _, domain := range config.HighDomains {
		c.highMap[domain] = true
	}
	for _, domain := range config.MediumDomains {
		c.mediumMap[domain] = true
	}

	return c
}

// Classify classifies a URL into a credibility tier.
func (c *Classifier) Classify(rawURL string) model.CredibilityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.TierLow
	}

	host := parsed.Host
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	if host == "" {
		return model.TierLow
	}

	// Explicit host overrides from config win over everything. An
	// unparseable override falls through to normal matching.
	if c.config.DomainMap != nil {
		if tierStr, ok := c.config.DomainMap[host]; ok {
			if tier := model.ParseTier(tierStr); tier != model.TierUnknown {
				return tier
			}
		}
	}

	if matchesDomain(host, c.highMap) {
		return model.TierHigh
	}
	if matchesDomain(host, c.mediumMap) {
		return model.TierMedium
	}

	// Government and academic TLDs are high-credibility by default
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") ||
		strings.HasSuffix(host, ".ac.uk") || strings.HasSuffix(host, ".gov.uk") {
		return model.TierHigh
	}

	return model.TierLow
}

// matchesDomain reports whether host equals or is a subdomain of any
// domain in the map.
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
