// Package ollama implements models.CopyProvider against a local Ollama
// server's chat API. Ollama does not report token usage the way hosted
// providers do, so usage comes from its eval counts and cost stays zero.
package ollama

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

// Provider implements models.CopyProvider using Ollama.
type Provider struct {
	cfg    config.OllamaConfig
	params prompt.Params
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig, params prompt.Params) *Provider {
	return &Provider{
		cfg:    cfg,
		params: params,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

func (p *Provider) Name() string { return "ollama" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
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
		Stream: false,
		Options: chatOptions{
			Temperature: p.params.Temperature,
			NumPredict:  p.params.MaxTokens,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("build request: %w", err)
	}
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
		return models.GenerationResult{}, fmt.Errorf("%w: status %d", prompt.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.GenerationResult{}, fmt.Errorf("%w: %v", prompt.ErrInvalidResponse, err)
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return models.GenerationResult{}, prompt.ErrEmptyContent
	}

	return models.GenerationResult{
		Content: content,
		Model:   parsed.Model,
		Usage: models.TokenUsage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
		CreatedAt: time.Now().UTC(),
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
