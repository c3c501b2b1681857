package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/navigategovuk/telldoug2-sub001/internal/platform/config"
)

const providerName = "openai"

// OpenAIProvider implements Provider against an OpenAI-style API:
// /v1/moderations for classification and /v1/chat/completions for the
// text operations. The client pools connections; individual calls are
// bounded only by the configured timeout and the caller's context.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// OpenAIOption configures the OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(p *OpenAIProvider) { p.logger = logger }
}

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

// NewOpenAIProvider constructs a provider client from configuration.
func NewOpenAIProvider(cfg config.ProviderConfig, opts ...OpenAIOption) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	p := &OpenAIProvider{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// ModerateText classifies text via the moderations endpoint.
func (p *OpenAIProvider) ModerateText(ctx context.Context, text string) (*ModerationResult, error) {
	body, err := p.post(ctx, "/v1/moderations", moderationRequest{Input: text})
	if err != nil {
		return nil, err
	}

	var parsed moderationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "malformed moderation response", Cause: err}
	}
	if len(parsed.Results) == 0 {
		return nil, &ProviderError{Provider: providerName, Message: "moderation response contained no results"}
	}

	result := parsed.Results[0]
	out := &ModerationResult{
		Flagged:        result.Flagged,
		Categories:     result.Categories,
		CategoryScores: result.CategoryScores,
	}
	if out.Categories == nil {
		out.Categories = map[string]bool{}
	}
	if out.CategoryScores == nil {
		out.CategoryScores = map[string]float64{}
	}
	return out, nil
}

type chatRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	Temperature    float64                `json:"temperature"`
	Stream         bool                   `json:"stream,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const chatModel = "gpt-4o-mini"

// EligibilityPrecheck asks the model for a non-binding eligibility read
// on intake answers. The response is requested as a JSON object.
func (p *OpenAIProvider) EligibilityPrecheck(ctx context.Context, answers map[string]string) (*PrecheckResult, error) {
	prompt, err := json.Marshal(answers)
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "failed to encode intake answers", Cause: err}
	}

	content, err := p.chat(ctx, chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You pre-assess housing application eligibility. Respond with a JSON object {\"likely_eligible\": bool, \"summary\": string}."},
			{Role: "user", Content: string(prompt)},
		},
		ResponseFormat: map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		LikelyEligible bool   `json:"likely_eligible"`
		Summary        string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "malformed precheck response", Cause: err}
	}
	return &PrecheckResult{LikelyEligible: parsed.LikelyEligible, Summary: parsed.Summary}, nil
}

// ExtractDocument pulls structured fields from document text.
func (p *OpenAIProvider) ExtractDocument(ctx context.Context, text string) (*DocumentExtraction, error) {
	content, err := p.chat(ctx, chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You extract fields from housing-application documents. Respond with a JSON object {\"document_type\": string, \"fields\": {string: string}}."},
			{Role: "user", Content: text},
		},
		ResponseFormat: map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		DocumentType string            `json:"document_type"`
		Fields       map[string]string `json:"fields"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "malformed extraction response", Cause: err}
	}
	if parsed.Fields == nil {
		parsed.Fields = map[string]string{}
	}
	return &DocumentExtraction{DocumentType: parsed.DocumentType, Fields: parsed.Fields}, nil
}

// AssistantReply streams a chat completion over SSE. Chunks of reply
// text are delivered on the returned channel, which is closed when the
// stream ends or the context is cancelled.
func (p *OpenAIProvider) AssistantReply(ctx context.Context, prompt string) (<-chan string, error) {
	resp, err := p.do(ctx, "/v1/chat/completions", chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a housing portal assistant. Be concise and factual."},
			{Role: "user", Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				if p.logger != nil {
					p.logger.WarnContext(ctx, "dropping malformed stream chunk", "error", err)
				}
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *OpenAIProvider) chat(ctx context.Context, req chatRequest) (string, error) {
	body, err := p.post(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: providerName, Message: "malformed completion response", Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: providerName, Message: "completion response contained no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	resp, err := p.do(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "failed to read response body", Cause: err}
	}
	return body, nil
}

func (p *OpenAIProvider) do(ctx context.Context, path string, payload any) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Message: "request failed", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", strings.TrimSpace(string(body))),
		}
	}
	return resp, nil
}
