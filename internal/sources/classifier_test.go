package sources

import (
	"testing"

	"veristream/internal/model"
)

func TestClassifier_Classify(t *testing.T) {
	cfg := &model.SourcesConfig{
		HighDomains:   []string{"bls.gov", "nature.com"},
		MediumDomains: []string{"reuters.com", "snopes.com"},
		DomainMap:     map[string]string{"myblog.example.com": "medium"},
	}
	c := NewClassifier(cfg)

	tests := []struct {
		url  string
		want model.CredibilityTier
	}{
		{"https://www.bls.gov/news.release/empsit.nr0.htm", model.TierHigh},
		{"https://nature.com/articles/abc", model.TierHigh},
		{"https://data.census.gov/table", model.TierHigh},  // .gov TLD heuristic
		{"https://econ.mit.edu/research", model.TierHigh},  // .edu TLD heuristic
		{"https://www.reuters.com/markets/", model.TierMedium},
		{"https://snopes.com/fact-check/x", model.TierMedium},
		{"https://myblog.example.com/post", model.TierMedium}, // explicit override
		{"https://randomsite.io/opinion", model.TierLow},
		{"not a url", model.TierLow},
		{"https://fakereuters.com/story", model.TierLow}, // suffix match must honor dot boundary
	}

	for _, tt := range tests {
		if got := c.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestClassifier_NilConfigUsesDefaults(t *testing.T) {
	c := NewClassifier(nil)
	if got := c.Classify("https://www.cdc.gov/data"); got != model.TierHigh {
		t.Errorf("default config should rate cdc.gov high, got %v", got)
	}
}

func TestClassifier_PortStripped(t *testing.T) {
	c := NewClassifier(&model.SourcesConfig{HighDomains: []string{"example.org"}})
	if got := c.Classify("https://example.org:8443/page"); got != model.TierHigh {
		t.Errorf("host with port should still match, got %v", got)
	}
}
