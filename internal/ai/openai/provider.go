// Package openai implements models.CopyProvider against the OpenAI
// chat-completions API (or any compatible endpoint via OPENAI_BASE_URL).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/copyforge/internal/ai/prompt"
	"github.com/kiranshivaraju/copyforge/internal/config"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// Provider implements models.CopyProvider using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	params prompt.Params
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig, params prompt.Params) *Provider {
	return &Provider{
		cfg:    cfg,
		params: params,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Stream           bool          `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System(req.Artifact)},
			{Role: "user", Content: prompt.Build(req.Artifact, req.Context, p.params.Tone)},
		},
		Temperature: p.params.Temperature,
		MaxTokens:   p.params.MaxTokens,
		TopP:        1,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.GenerationResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return models.GenerationResult{}, statusError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.GenerationResult{}, fmt.Errorf("%w: %v", prompt.ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return models.GenerationResult{}, fmt.Errorf("%w: no choices", prompt.ErrInvalidResponse)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return models.GenerationResult{}, prompt.ErrEmptyContent
	}

	created := time.Now().UTC()
	if parsed.Created > 0 {
		created = time.Unix(parsed.Created, 0).UTC()
	}

	return models.GenerationResult{
		Content: content,
		Model:   parsed.Model,
		Usage: models.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		CostEstimate: prompt.EstimateCost(parsed.Usage.TotalTokens),
		CreatedAt:    created,
	}, nil
}

// statusError maps API error codes to human-readable messages. The retry
// controller treats all of them alike; the text is what users see on the job.
func statusError(status int, raw []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid API key (status %d)", status)
	case http.StatusPaymentRequired:
		return fmt.Errorf("quota exceeded (status %d)", status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded (status %d)", status)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d", prompt.ErrProviderUnavailable, status)
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("api error (status %d): %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("api error (status %d)", status)
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", prompt.ErrInferenceTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", prompt.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", prompt.ErrProviderUnavailable, err)
}

var _ models.CopyProvider = (*Provider)(nil)
