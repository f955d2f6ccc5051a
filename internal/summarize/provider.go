// Package summarize orchestrates text-generation providers to produce a
// structured summary for each selected paper, with retry, provider
// fallback, and a deterministic degraded template when every provider
// fails.
package summarize

import (
	"context"
	"errors"
	"fmt"

	"github.com/ptdat/paperblog/internal/models"
)

// ErrMalformedSummary indicates a provider responded but the response was
// missing one or more required sections. The engine treats it as a failed
// attempt, retried like any transient error.
var ErrMalformedSummary = errors.New("malformed summary: missing required sections")

// Provider is one summarization backend. Implementations are a closed set
// (groq, ollama) selected by an explicit priority list in configuration;
// the engine is agnostic to which concrete backend it talks to.
type Provider interface {
	// Name identifies the backend in results and logs.
	Name() string

	// Summarize produces the four structured sections for a paper.
	// Failures are reported as *ProviderError so the engine can
	// distinguish transient from permanent conditions.
	Summarize(ctx context.Context, title, abstract string, categories []string) (*models.SummarySections, error)
}

// ProviderError wraps a backend failure and records whether it is worth
// retrying. Permanent errors (bad credentials, unknown model) skip the
// remaining retries for that provider; transient ones (rate limits,
// timeouts) are retried with backoff.
type ProviderError struct {
	Provider  string
	Permanent bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// transientErr wraps err as a retryable provider failure.
func transientErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// permanentErr wraps err as a non-retryable provider failure.
func permanentErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Permanent: true, Err: err}
}

// permanentStatus reports whether an HTTP status from a provider API marks
// a configuration problem that retrying cannot fix.
func permanentStatus(status int) bool {
	switch status {
	case 400, 401, 403, 404, 422:
		return true
	}
	return false
}

// ProviderConfig describes one configured backend.
type ProviderConfig struct {
	Name    string // "groq" | "ollama"
	APIKey  string
	Model   string
	BaseURL string // optional override, used for ollama and in tests
}

// NewProviders builds the provider chain in the given priority order.
func NewProviders(cfgs []ProviderConfig) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Name {
		case "groq":
			providers = append(providers, NewGroqProvider(cfg.APIKey, cfg.Model, cfg.BaseURL))
		case "ollama":
			providers = append(providers, NewOllamaProvider(cfg.BaseURL, cfg.Model))
		default:
			return nil, fmt.Errorf("unsupported summarization provider: %s", cfg.Name)
		}
	}
	return providers, nil
}
