package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Fetch     FetchConfig     `toml:"fetch"`
	Quality   QualityConfig   `toml:"quality"`
	Summarize SummarizeConfig `toml:"summarize"`
	Scholar   ScholarConfig   `toml:"scholar"`
	Blog      BlogConfig      `toml:"blog"`
}

// FetchConfig holds arXiv fetching and scheduling settings.
type FetchConfig struct {
	Categories []string `toml:"categories"`
	WindowDays int      `toml:"window_days"`
	Schedule   string   `toml:"schedule"`
}

// QualityConfig holds the scoring policy of the quality filter.
type QualityConfig struct {
	Threshold float64             `toml:"threshold"`
	Floor     float64             `toml:"floor"`
	Keywords  []string            `toml:"keywords"`
	Weights   WeightsConfig       `toml:"weights"`
	Topics    map[string][]string `toml:"topics"`
}

// WeightsConfig holds the score term coefficients.
type WeightsConfig struct {
	Category float64 `toml:"category"`
	Keyword  float64 `toml:"keyword"`
	Novelty  float64 `toml:"novelty"`
	Author   float64 `toml:"author"`
}

// ProviderConfig identifies one summarization backend. Providers are tried
// in the order they appear in the config file.
type ProviderConfig struct {
	Name    string `toml:"name"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// SummarizeConfig holds the summarization engine's retry and concurrency
// policy plus the provider chain.
type SummarizeConfig struct {
	Providers             []ProviderConfig `toml:"providers"`
	MaxAttempts           int              `toml:"max_attempts"`
	BaseDelaySeconds      int              `toml:"base_delay_seconds"`
	MaxDelaySeconds       int              `toml:"max_delay_seconds"`
	AttemptTimeoutSeconds int              `toml:"attempt_timeout_seconds"`
	Concurrency           int              `toml:"concurrency"`
	GroqAPIKey            string           `toml:"groq_api_key"`
	EnrichFromPage        bool             `toml:"enrich_from_page"`
}

// ScholarConfig holds the Semantic Scholar author-impact settings.
type ScholarConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
}

// BlogConfig holds digest assembly settings.
type BlogConfig struct {
	Title                   string `toml:"title"`
	TargetPapers            int    `toml:"target_papers"`
	AssemblyDeadlineMinutes int    `toml:"assembly_deadline_minutes"`
}

const defaultConfigContent = `[fetch]
categories = ["cs.AI", "cs.LG", "cs.CL"]
window_days = 7
schedule = "0 8 * * 4"              # weekly, Thursday 08:00

[quality]
threshold = 0.25
floor = 0.05
keywords = [
    "large language model", "transformer", "reinforcement learning",
    "diffusion", "agent", "retrieval",
]

[quality.weights]
category = 0.35
keyword = 0.25
novelty = 0.3
author = 0.1

[quality.topics]
"LLMs" = ["language model", "llm", "transformer", "attention"]
"Agentic AI" = ["agent", "tool use", "planning", "autonomous"]
"Vision" = ["image", "video", "diffusion", "vision"]

[summarize]
max_attempts = 3
base_delay_seconds = 1
max_delay_seconds = 30
attempt_timeout_seconds = 60
concurrency = 3
groq_api_key = ""                   # or set GROQ_API_KEY env var
enrich_from_page = false

[[summarize.providers]]
name = "groq"
model = "llama-3.3-70b-versatile"

[[summarize.providers]]
name = "ollama"
model = "llama3.2"
base_url = "http://localhost:11434"

[scholar]
enabled = false
api_key = ""                        # or set SEMANTIC_SCHOLAR_API_KEY env var

[blog]
title = "AI Papers Weekly"
target_papers = 5
assembly_deadline_minutes = 30
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "threshold = -1.0" is an error rather than
	// silently being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "window_days = 0" which would otherwise be
// silently replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("fetch", "window_days") {
		if cfg.Fetch.WindowDays < 1 {
			return fmt.Errorf("invalid fetch.window_days %d: must be >= 1", cfg.Fetch.WindowDays)
		}
	}
	if md.IsDefined("quality", "threshold") {
		if cfg.Quality.Threshold < 0 || cfg.Quality.Threshold > 1 {
			return fmt.Errorf("invalid quality.threshold %g: must be in [0, 1]", cfg.Quality.Threshold)
		}
	}
	if md.IsDefined("quality", "floor") {
		if cfg.Quality.Floor < 0 || cfg.Quality.Floor > 1 {
			return fmt.Errorf("invalid quality.floor %g: must be in [0, 1]", cfg.Quality.Floor)
		}
	}
	if md.IsDefined("summarize", "max_attempts") {
		if cfg.Summarize.MaxAttempts < 1 {
			return fmt.Errorf("invalid summarize.max_attempts %d: must be >= 1", cfg.Summarize.MaxAttempts)
		}
	}
	if md.IsDefined("summarize", "concurrency") {
		if cfg.Summarize.Concurrency < 1 {
			return fmt.Errorf("invalid summarize.concurrency %d: must be >= 1", cfg.Summarize.Concurrency)
		}
	}
	if md.IsDefined("blog", "target_papers") {
		if cfg.Blog.TargetPapers < 1 {
			return fmt.Errorf("invalid blog.target_papers %d: must be >= 1", cfg.Blog.TargetPapers)
		}
	}
	return nil
}

// applyDefaults fills in values for keys absent from the TOML file. Keys
// the file defines keep their value even when it equals the zero value,
// so an explicit "threshold = 0.0" survives.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if len(cfg.Fetch.Categories) == 0 {
		cfg.Fetch.Categories = []string{"cs.AI", "cs.LG", "cs.CL"}
	}
	if !md.IsDefined("fetch", "window_days") {
		cfg.Fetch.WindowDays = 7
	}
	if !md.IsDefined("fetch", "schedule") {
		cfg.Fetch.Schedule = "0 8 * * 4"
	}
	if !md.IsDefined("quality", "threshold") {
		cfg.Quality.Threshold = 0.25
	}
	if !md.IsDefined("quality", "floor") {
		cfg.Quality.Floor = 0.05
	}
	if !md.IsDefined("quality", "weights") {
		cfg.Quality.Weights = WeightsConfig{
			Category: 0.35,
			Keyword:  0.25,
			Novelty:  0.3,
			Author:   0.1,
		}
	}
	if len(cfg.Summarize.Providers) == 0 {
		cfg.Summarize.Providers = []ProviderConfig{
			{Name: "groq", Model: "llama-3.3-70b-versatile"},
			{Name: "ollama", Model: "llama3.2", BaseURL: "http://localhost:11434"},
		}
	}
	if !md.IsDefined("summarize", "max_attempts") {
		cfg.Summarize.MaxAttempts = 3
	}
	if !md.IsDefined("summarize", "base_delay_seconds") {
		cfg.Summarize.BaseDelaySeconds = 1
	}
	if !md.IsDefined("summarize", "max_delay_seconds") {
		cfg.Summarize.MaxDelaySeconds = 30
	}
	if !md.IsDefined("summarize", "attempt_timeout_seconds") {
		cfg.Summarize.AttemptTimeoutSeconds = 60
	}
	if !md.IsDefined("summarize", "concurrency") {
		cfg.Summarize.Concurrency = 3
	}
	if !md.IsDefined("blog", "title") {
		cfg.Blog.Title = "AI Papers Weekly"
	}
	if !md.IsDefined("blog", "target_papers") {
		cfg.Blog.TargetPapers = 5
	}
	if !md.IsDefined("blog", "assembly_deadline_minutes") {
		cfg.Blog.AssemblyDeadlineMinutes = 30
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Summarize.GroqAPIKey = v
	}
	if v := os.Getenv("SEMANTIC_SCHOLAR_API_KEY"); v != "" {
		cfg.Scholar.APIKey = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	for _, p := range cfg.Summarize.Providers {
		switch p.Name {
		case "groq", "ollama":
			// valid
		default:
			return fmt.Errorf("invalid summarize provider %q: must be \"groq\" or \"ollama\"", p.Name)
		}
	}

	if cfg.Quality.Floor > cfg.Quality.Threshold {
		return fmt.Errorf("invalid quality.floor %g: must not exceed threshold %g",
			cfg.Quality.Floor, cfg.Quality.Threshold)
	}

	if cfg.Summarize.MaxDelaySeconds < cfg.Summarize.BaseDelaySeconds {
		return fmt.Errorf("invalid summarize.max_delay_seconds %d: must be >= base_delay_seconds %d",
			cfg.Summarize.MaxDelaySeconds, cfg.Summarize.BaseDelaySeconds)
	}

	if cfg.Summarize.GroqAPIKey == "" {
		for _, p := range cfg.Summarize.Providers {
			if p.Name == "groq" {
				slog.Warn("summarize.groq_api_key is empty: set it in the config file or via GROQ_API_KEY environment variable")
				break
			}
		}
	}

	return nil
}
