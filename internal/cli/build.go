package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"veristream/internal/event"
	"veristream/internal/extract"
	"veristream/internal/gate"
	"veristream/internal/llm"
	"veristream/internal/model"
	"veristream/internal/search"
	"veristream/internal/session"
	"veristream/internal/sources"
	"veristream/internal/synth"
	"veristream/internal/transcript"
	"veristream/internal/verify"
	"veristream/internal/worker"
)

// loadConfig resolves the effective configuration: defaults, then the
// config file viper already read, then environment and flag overrides.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if addr := viper.GetString("server.addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if base := viper.GetString("transcript.base_url"); base != "" {
		cfg.Transcript.BaseURL = base
	}

	resolveAPIKey(cfg)
	return cfg, nil
}

// resolveAPIKey fills the provider key from the conventional env vars.
func resolveAPIKey(cfg *model.Config) {
	if cfg.LLM.APIKey != "" {
		return
	}
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
}

// buildLogger creates the process logger.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildManager assembles the full pipeline behind a session manager.
// When source is nil the transcript service from config is used.
func buildManager(cfg *model.Config, source transcript.Source, log *slog.Logger) (*session.Manager, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("configure LLM provider: %w", err)
	}

	if source == nil {
		if cfg.Transcript.BaseURL == "" {
			return nil, fmt.Errorf("transcript.base_url is not configured")
		}
		source = transcript.NewHTTPSource(cfg.Transcript)
	}

	limiter := worker.NewLimiter(cfg.LLM.RatePerSec, cfg.LLM.Burst)
	classifier := sources.NewClassifier(&cfg.Sources)
	searcher := search.NewLLMSearcher(provider, classifier, limiter)

	var summarizer session.Summarizer
	if cfg.LLM.Summary {
		summarizer = llm.NewSummarizer(provider)
	}
	var validator *sources.Validator
	if cfg.Verify.ValidateCited {
		validator = sources.NewValidator(cfg.Sources, 10)
	}

	return session.NewManager(cfg, session.Deps{
		Source:     source,
		Chunker:    transcript.NewChunker(cfg.Chunker),
		Summarizer: summarizer,
		Extractor:  extract.NewClaimExtractor(provider),
		Gate:       gate.New(cfg.Gate),
		Verifier:   verify.NewCoordinator(searcher, cfg.Verify, cfg.Limits.FanoutsGlobal),
		Synth:      synth.New(cfg.Verify),
		Validator:  validator,
		Publisher:  event.NewPublisher(cfg.Events),
		Logger:     log,
	}), nil
}
