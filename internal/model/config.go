package model

import "time"

// Config is the full veristream configuration. Values resolve through
// the standard hierarchy: CLI flags > VERISTREAM_* environment
// variables > config file (~/.veristream/config.yaml) > defaults.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Gate       GateConfig       `yaml:"gate"`
	Verify     VerifyConfig     `yaml:"verify"`
	LLM        LLMConfig        `yaml:"llm"`
	Sources    SourcesConfig    `yaml:"sources"`
	Limits     LimitsConfig     `yaml:"limits"`
	Events     EventsConfig     `yaml:"events"`
}

// ServerConfig controls the HTTP control and streaming surfaces.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TranscriptConfig controls how transcripts are fetched.
type TranscriptConfig struct {
	// BaseURL of the caption service; {id} is replaced with the content id.
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// ChunkerConfig controls transcript segmentation.
type ChunkerConfig struct {
	TargetSeconds   float64 `yaml:"target_seconds"`   // Preferred chunk span
	MaxSeconds      float64 `yaml:"max_seconds"`      // Hard ceiling per chunk
	ContextSentences int    `yaml:"context_sentences"` // Trailing sentences carried into the next chunk
}

// GateConfig controls importance gating and verdict reuse.
type GateConfig struct {
	ImportanceThreshold float64       `yaml:"importance_threshold"` // Claims at or above enter verification
	ReuseTTL            time.Duration `yaml:"reuse_ttl"`            // How long verdicts are reusable by fingerprint
}

// VerifyConfig bounds the verification fan-out.
type VerifyConfig struct {
	TaskTimeout   time.Duration `yaml:"task_timeout"`    // Per worker-variant call
	ClaimCeiling  time.Duration `yaml:"claim_ceiling"`   // Overall per-claim bound
	MaxRetries    int           `yaml:"max_retries"`     // Retries per transient task failure
	MinFindings   int           `yaml:"min_findings"`    // Below this the verdict is UNVERIFIABLE
	ValidateCited bool          `yaml:"validate_cited"`  // Liveness-check cited URLs
}

// LLMConfig selects and tunes the reasoning capability provider.
type LLMConfig struct {
	Provider  string  `yaml:"provider"` // openai, anthropic, ollama
	Model     string  `yaml:"model"`
	APIKey    string  `yaml:"api_key,omitempty"`
	BaseURL   string  `yaml:"base_url,omitempty"`
	Timeout   int     `yaml:"timeout"` // seconds
	MaxTokens int     `yaml:"max_tokens"`
	RatePerSec float64 `yaml:"rate_per_sec"` // Capability call rate limit
	Burst      int     `yaml:"burst"`
	Summary    bool    `yaml:"summary"` // Generate a transcript summary for extraction context
}

// SourcesConfig controls credibility classification of cited URLs.
type SourcesConfig struct {
	HighDomains   []string          `yaml:"high_domains"`
	MediumDomains []string          `yaml:"medium_domains"`
	DomainMap     map[string]string `yaml:"domain_map,omitempty"` // Explicit host -> tier overrides
	ValidateTimeout time.Duration   `yaml:"validate_timeout"`
	UserAgent     string            `yaml:"user_agent"`
}

// LimitsConfig bounds resource and API consumption.
type LimitsConfig struct {
	ExtractionsPerSession int `yaml:"extractions_per_session"` // Concurrent chunk-extraction calls per session
	FanoutsPerSession     int `yaml:"fanouts_per_session"`     // Concurrent claim fan-outs per session
	FanoutsGlobal         int `yaml:"fanouts_global"`          // Concurrent claim fan-outs across sessions
}

// EventsConfig controls the per-session event stream.
type EventsConfig struct {
	ReplayBuffer     int           `yaml:"replay_buffer"`     // Retained events for reconnect/resume
	SubscriberBuffer int           `yaml:"subscriber_buffer"` // Per-subscriber channel depth
	SessionGrace     time.Duration `yaml:"session_grace"`     // Terminal session retention before removal
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Transcript: TranscriptConfig{
			Timeout:   15 * time.Second,
			UserAgent: "veristream/0.1",
		},
		Chunker: ChunkerConfig{
			TargetSeconds:    45,
			MaxSeconds:       60,
			ContextSentences: 2,
		},
		Gate: GateConfig{
			ImportanceThreshold: 0.7,
			ReuseTTL:            30 * time.Minute,
		},
		Verify: VerifyConfig{
			TaskTimeout:  4 * time.Second,
			ClaimCeiling: 10 * time.Second,
			MaxRetries:   2,
			MinFindings:  1,
		},
		LLM: LLMConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			Timeout:    30,
			MaxTokens:  1000,
			RatePerSec: 5,
			Burst:      10,
			Summary:    true,
		},
		Sources: SourcesConfig{
			HighDomains: []string{
				"bls.gov", "census.gov", "cdc.gov", "fbi.gov", "federalreserve.gov",
				"nature.com", "science.org", "nih.gov", "pubmed.ncbi.nlm.nih.gov",
			},
			MediumDomains: []string{
				"reuters.com", "apnews.com", "bbc.com", "npr.org",
				"snopes.com", "factcheck.org", "politifact.com",
			},
			ValidateTimeout: 5 * time.Second,
			UserAgent:       "veristream/0.1",
		},
		Limits: LimitsConfig{
			ExtractionsPerSession: 3,
			FanoutsPerSession:     5,
			FanoutsGlobal:         20,
		},
		Events: EventsConfig{
			ReplayBuffer:     1024,
			SubscriberBuffer: 256,
			SessionGrace:     10 * time.Minute,
		},
	}
}
