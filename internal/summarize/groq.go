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
var _ Provider = (*GroqProvider)(nil)

const defaultGroqURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider implements Provider using the Groq OpenAI-compatible Chat
// Completions API. It is the hosted primary backend.
type GroqProvider struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// NewGroqProvider creates a GroqProvider with a 60-second timeout HTTP
// client. An empty baseURL selects the public Groq endpoint.
func NewGroqProvider(apiKey, model, baseURL string) *GroqProvider {
	if baseURL == "" {
		baseURL = defaultGroqURL
	}
	return &GroqProvider{
		apiKey: apiKey,
		model:  model,
		apiURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name identifies the backend in results and logs.
func (p *GroqProvider) Name() string {
	return "groq"
}

// groqRequest is the request body for the chat completions API.
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// groqMessage is a single message in the chat completions request.
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqResponse is the response body from the chat completions API.
type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize produces the structured sections using the Groq API.
func (p *GroqProvider) Summarize(ctx context.Context, title, abstract string, categories []string) (*models.SummarySections, error) {
	systemPrompt, userPrompt := SummarizePrompt(title, abstract, categories)

	reqBody := groqRequest{
		Model: p.model,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   800,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, permanentErr(p.Name(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, permanentErr(p.Name(), fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("calling Groq API", "model", p.model)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("reading response body: %w", err))
	}

	var apiResp groqResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, transientErr(p.Name(), fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := "no error detail"
		if apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		err := fmt.Errorf("API error (status %d): %s", resp.StatusCode, msg)
		if permanentStatus(resp.StatusCode) {
			return nil, permanentErr(p.Name(), err)
		}
		return nil, transientErr(p.Name(), err)
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("groq: %w: empty response", ErrMalformedSummary)
	}

	sections, err := ParseSections(apiResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	return sections, nil
}
