package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ptdat/paperblog/internal/arxiv"
	"github.com/ptdat/paperblog/internal/blog"
	"github.com/ptdat/paperblog/internal/config"
	"github.com/ptdat/paperblog/internal/pipeline"
	"github.com/ptdat/paperblog/internal/quality"
	"github.com/ptdat/paperblog/internal/scholar"
	"github.com/ptdat/paperblog/internal/storage"
	"github.com/ptdat/paperblog/internal/summarize"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	once := flag.Bool("once", false, "generate one digest and exit instead of running the scheduler")
	windowDays := flag.Int("window-days", 0, "override the configured window length in days")
	force := flag.Bool("force", false, "regenerate summaries even for unchanged papers")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *windowDays > 0 {
		cfg.Fetch.WindowDays = *windowDays
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "paperblog.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	p, err := buildPipeline(cfg, store)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		artifact, err := p.RunCurrentWindow(ctx, *force)
		if err != nil {
			slog.Error("digest run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("digest written",
			"artifact_id", artifact.ID,
			"papers", artifact.PaperCount,
			"status", artifact.Status,
		)
		return
	}

	scheduler := pipeline.NewScheduler(cfg.Fetch.Schedule, p)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	scheduler.Stop()
}

// buildPipeline wires the pipeline stages from configuration.
func buildPipeline(cfg *config.Config, store *storage.Store) (*pipeline.Pipeline, error) {
	providerCfgs := make([]summarize.ProviderConfig, len(cfg.Summarize.Providers))
	for i, p := range cfg.Summarize.Providers {
		providerCfgs[i] = summarize.ProviderConfig{
			Name:    p.Name,
			Model:   p.Model,
			BaseURL: p.BaseURL,
		}
		if p.Name == "groq" {
			providerCfgs[i].APIKey = cfg.Summarize.GroqAPIKey
		}
	}
	providers, err := summarize.NewProviders(providerCfgs)
	if err != nil {
		return nil, err
	}

	engine := summarize.NewEngine(providers, store, summarize.Config{
		MaxAttempts:    cfg.Summarize.MaxAttempts,
		BaseDelay:      time.Duration(cfg.Summarize.BaseDelaySeconds) * time.Second,
		MaxDelay:       time.Duration(cfg.Summarize.MaxDelaySeconds) * time.Second,
		AttemptTimeout: time.Duration(cfg.Summarize.AttemptTimeoutSeconds) * time.Second,
		Concurrency:    cfg.Summarize.Concurrency,
	})
	if cfg.Summarize.EnrichFromPage {
		engine.SetEnricher(arxiv.NewExtractor())
	}

	var impact quality.ImpactLookup
	if cfg.Scholar.Enabled {
		impact = scholar.NewClient(cfg.Scholar.APIKey)
		slog.Info("author-impact scoring enabled")
	}

	assembler := blog.NewAssembler(store)
	assembler.SetTitle(cfg.Blog.Title)

	return pipeline.New(
		arxiv.NewFetcher(),
		impact,
		engine,
		assembler,
		store,
		pipeline.Config{
			Categories: cfg.Fetch.Categories,
			Quality: quality.Config{
				Categories: cfg.Fetch.Categories,
				Keywords:   cfg.Quality.Keywords,
				Topics:     cfg.Quality.Topics,
				Weights: quality.Weights{
					Category: cfg.Quality.Weights.Category,
					Keyword:  cfg.Quality.Weights.Keyword,
					Novelty:  cfg.Quality.Weights.Novelty,
					Author:   cfg.Quality.Weights.Author,
				},
				Threshold: cfg.Quality.Threshold,
				Floor:     cfg.Quality.Floor,
			},
			Target:           cfg.Blog.TargetPapers,
			WindowDays:       cfg.Fetch.WindowDays,
			AssemblyDeadline: time.Duration(cfg.Blog.AssemblyDeadlineMinutes) * time.Minute,
		},
	), nil
}
