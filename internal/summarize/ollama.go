package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

// Compile-time interface check.
var _ Provider = (*OllamaProvider)(nil)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements Provider against a locally hosted Ollama
// server. It is the secondary backend in the default priority order.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an OllamaProvider with a 60-second timeout
// HTTP client. An empty baseURL selects localhost:11434.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name identifies the backend in results and logs.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// ollamaRequest is the request body for the Ollama generate API.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// ollamaOptions tunes the generation.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

// ollamaResponse is the response body from the Ollama generate API.
type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Summarize produces the structured sections using a local Ollama server.
func (p *OllamaProvider) Summarize(ctx context.Context, title, abstract string, categories []string) (*models.SummarySections, error) {
	systemPrompt, userPrompt := SummarizePrompt(title, abstract, categories)

	reqBody := ollamaRequest{
		Model:  p.model,
		Prompt: systemPrompt + "\n\n" + userPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.7,
			TopP:        0.9,
			NumPredict:  500,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, permanentErr(p.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, permanentErr(p.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling Ollama", "model", p.model, "url", p.baseURL)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("reading response body: %w", err))
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := apiResp.Error
		if msg == "" {
			msg = "no error detail"
		}
		err := fmt.Errorf("server error (status %d): %s", resp.StatusCode, msg)
		if permanentStatus(resp.StatusCode) {
			return nil, permanentErr(p.Name(), err)
		}
		return nil, transientErr(p.Name(), err)
	}

	if apiResp.Response == "" {
		return nil, fmt.Errorf("ollama: %w: empty response", ErrMalformedSummary)
	}

	sections, err := ParseSections(apiResp.Response)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return sections, nil
}
