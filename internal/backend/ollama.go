package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"parley/internal/memory"
	"parley/internal/prompt"
	"parley/internal/reliability"
)

const (
	ollamaMaxAttempts = 3
	ollamaBackoffBase = 200 * time.Millisecond
	ollamaBackoffCap  = 2 * time.Second
)

// OllamaGenerator runs generation against a local Ollama server using
// the completion endpoint with a transcript-style prompt.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaGenerator probes the server before returning; a dead server
// is reported as ErrUnavailable so the caller can decide once at
// startup instead of failing every turn.
func NewOllamaGenerator(baseURL, model string) (*OllamaGenerator, error) {
	g := &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: probe status %d", ErrUnavailable, resp.StatusCode)
	}

	return g, nil
}

func (g *OllamaGenerator) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	payload := ollamaGenerateRequest{
		Model:  g.model,
		Prompt: g.buildPrompt(req),
		Stream: false,
		Options: map[string]any{
			"temperature": 0.9,
			"top_p":       0.9,
			"num_predict": 100,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode generate request: %w", err)
	}

	out, err := g.post(ctx, body)
	if err != nil {
		return Response{}, err
	}

	text := strings.TrimSpace(out.Response)
	text = strings.TrimPrefix(text, "Partner:")
	return Response{
		Text:        strings.TrimSpace(text),
		TotalTokens: out.PromptEvalCount + out.EvalCount,
	}, nil
}

// post sends the generate request, retrying transient transport
// failures and retryable status codes with capped backoff.
func (g *OllamaGenerator) post(ctx context.Context, body []byte) (ollamaGenerateResponse, error) {
	var lastErr error
	for attempt := 0; attempt < ollamaMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ollamaGenerateResponse{}, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, ollamaBackoffBase, ollamaBackoffCap)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return ollamaGenerateResponse{}, fmt.Errorf("build generate request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("generate call: %w", err)
			if reliability.IsRetryableError(err) {
				continue
			}
			return ollamaGenerateResponse{}, lastErr
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("generate status %d", resp.StatusCode)
			if reliability.IsRetryableHTTPStatus(resp.StatusCode) {
				continue
			}
			return ollamaGenerateResponse{}, lastErr
		}

		var out ollamaGenerateResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return ollamaGenerateResponse{}, fmt.Errorf("decode generate response: %w", err)
		}
		return out, nil
	}
	return ollamaGenerateResponse{}, lastErr
}

// buildPrompt renders the conversation window as a Student/Partner
// transcript ending with an open Partner line.
func (g *OllamaGenerator) buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(prompt.CompactSystemPrompt)
	if req.Context != "" {
		b.WriteString("\nPersonalization context: ")
		b.WriteString(req.Context)
	}
	if req.Guidance != "" {
		b.WriteString("\nConversation guidance: ")
		b.WriteString(req.Guidance)
	}
	if req.Diversify {
		b.WriteString("\n")
		b.WriteString(diversifyInstruction)
	}
	b.WriteString("\n\n")

	for _, m := range req.Turns {
		switch m.Role {
		case memory.RoleUser:
			b.WriteString("Student: ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		case memory.RoleAssistant:
			b.WriteString("Partner: ")
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	b.WriteString("Partner:")
	return b.String()
}
