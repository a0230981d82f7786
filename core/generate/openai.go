package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/daggergm/daggergm/apperror"
)

const defaultMaxAttempts = 3

// OpenAIGenerator is a structured-output client for the OpenAI chat
// completions API using json_schema response format. Transient failures
// (network errors, 429, 5xx) are retried with exponential backoff up to
// maxAttempts; anything else surfaces immediately.
type OpenAIGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxAttempts int
}

// NewOpenAIGenerator builds a generator from OPENAI_API_KEY, OPENAI_BASE_URL
// and OPENAI_MODEL.
func NewOpenAIGenerator() (*OpenAIGenerator, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIGenerator{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// GenerateJSON implements Generator
func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"strict": true,
				"schema": schema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, apperror.NewTransient("completion request cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		raw, retryable, err := g.doRequest(ctx, payload, schemaName)
		if err == nil {
			return raw, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, apperror.NewTransient(fmt.Sprintf("completion request failed after %d attempts", g.maxAttempts), lastErr)
}

// doRequest performs one attempt. The second return value reports whether
// the failure is transient and worth retrying.
func (g *OpenAIGenerator) doRequest(ctx context.Context, payload []byte, schemaName string) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, apperror.NewTransient("completion request cancelled", ctx.Err())
		}
		return nil, true, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("completion request returned %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, apperror.NewValidation(fmt.Sprintf("completion request rejected with %d", resp.StatusCode), fmt.Errorf("%s", string(body)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, apperror.NewValidation("failed to decode completion envelope", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, apperror.NewValidation(fmt.Sprintf("completion for %s returned no choices", schemaName), nil)
	}
	if parsed.Choices[0].Message.Refusal != "" {
		return nil, false, apperror.NewValidation(fmt.Sprintf("completion for %s refused", schemaName), fmt.Errorf("%s", parsed.Choices[0].Message.Refusal))
	}

	content := parsed.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		// Structurally malformed output is a prompt/model problem; retrying
		// the same prompt would only burn budget.
		return nil, false, apperror.NewValidation(fmt.Sprintf("completion for %s is not valid JSON", schemaName), nil)
	}

	return json.RawMessage(content), false, nil
}
