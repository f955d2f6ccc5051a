package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func groqServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("missing Authorization header")
		}
		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		if status != http.StatusOK {
			resp = map[string]any{"error": map[string]any{"message": "nope"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGroqProvider_Success(t *testing.T) {
	srv := groqServer(t, http.StatusOK, wellFormedResponse)
	p := NewGroqProvider("test-key", "llama-3.1-8b-instant", srv.URL)

	sections, err := p.Summarize(context.Background(), "Title", "Abstract.", []string{"cs.AI"})
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if !sections.Complete() {
		t.Errorf("sections incomplete: %+v", sections)
	}
}

func TestGroqProvider_AuthFailureIsPermanent(t *testing.T) {
	srv := groqServer(t, http.StatusUnauthorized, "")
	p := NewGroqProvider("bad-key", "llama-3.1-8b-instant", srv.URL)

	_, err := p.Summarize(context.Background(), "Title", "Abstract.", nil)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if !perr.Permanent {
		t.Errorf("auth failure should be permanent: %v", err)
	}
}

func TestGroqProvider_RateLimitIsTransient(t *testing.T) {
	srv := groqServer(t, http.StatusTooManyRequests, "")
	p := NewGroqProvider("test-key", "llama-3.1-8b-instant", srv.URL)

	_, err := p.Summarize(context.Background(), "Title", "Abstract.", nil)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.Permanent {
		t.Errorf("rate limit should be transient: %v", err)
	}
}

func TestGroqProvider_UnreachableIsTransient(t *testing.T) {
	p := NewGroqProvider("test-key", "llama-3.1-8b-instant", "http://127.0.0.1:1")

	_, err := p.Summarize(context.Background(), "Title", "Abstract.", nil)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if perr.Permanent {
		t.Errorf("connection failure should be transient: %v", err)
	}
}

func TestGroqProvider_MissingSectionsIsMalformed(t *testing.T) {
	srv := groqServer(t, http.StatusOK, "### Problem\nOnly one section.")
	p := NewGroqProvider("test-key", "llama-3.1-8b-instant", srv.URL)

	_, err := p.Summarize(context.Background(), "Title", "Abstract.", nil)
	if !errors.Is(err, ErrMalformedSummary) {
		t.Fatalf("error = %v, want ErrMalformedSummary", err)
	}
}

func TestNewProviders(t *testing.T) {
	tests := []struct {
		name    string
		cfgs    []ProviderConfig
		wantErr bool
		wantLen int
	}{
		{
			name: "groq then ollama",
			cfgs: []ProviderConfig{
				{Name: "groq", APIKey: "k", Model: "m"},
				{Name: "ollama", Model: "llama3"},
			},
			wantLen: 2,
		},
		{
			name:    "unknown provider",
			cfgs:    []ProviderConfig{{Name: "carrier-pigeon"}},
			wantErr: true,
		},
		{
			name:    "empty chain",
			cfgs:    nil,
			wantLen: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := NewProviders(tt.cfgs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(providers) != tt.wantLen {
				t.Fatalf("got %d providers, want %d", len(providers), tt.wantLen)
			}
			// Priority order must match the config order.
			if tt.wantLen == 2 {
				if providers[0].Name() != "groq" || providers[1].Name() != "ollama" {
					t.Errorf("provider order = [%s, %s], want [groq, ollama]",
						providers[0].Name(), providers[1].Name())
				}
			}
		})
	}
}
