// Package anthropic implements models.CopyProvider against the Anthropic
// Messages API.
package anthropic

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

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Provider implements models.CopyProvider using Anthropic.
type Provider struct {
	cfg    config.AnthropicConfig
	params prompt.Params
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig, params prompt.Params) *Provider {
	return &Provider{
		cfg:    cfg,
		params: params,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := messagesRequest{
		Model:     model,
		MaxTokens: p.params.MaxTokens,
		System:    prompt.System(req.Artifact),
		Messages: []message{
			{Role: "user", Content: prompt.Build(req.Artifact, req.Context, p.params.Tone)},
		},
		Temperature: p.params.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
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

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.GenerationResult{}, fmt.Errorf("%w: %v", prompt.ErrInvalidResponse, err)
	}

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("api error (status %d)", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("api error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		if resp.StatusCode >= 500 {
			return models.GenerationResult{}, fmt.Errorf("%w: %s", prompt.ErrProviderUnavailable, msg)
		}
		return models.GenerationResult{}, errors.New(msg)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return models.GenerationResult{}, prompt.ErrEmptyContent
	}

	total := parsed.Usage.InputTokens + parsed.Usage.OutputTokens
	return models.GenerationResult{
		Content: content,
		Model:   parsed.Model,
		Usage: models.TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      total,
		},
		CostEstimate: prompt.EstimateCost(total),
		CreatedAt:    time.Now().UTC(),
	}, nil
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
