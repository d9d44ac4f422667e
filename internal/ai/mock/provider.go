package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/copyforge/internal/ai/prompt"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// MockProvider satisfies models.CopyProvider for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.GenerationResult{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
			return models.GenerationResult{
				Content: fmt.Sprintf("Mock %s for %s", req.Artifact, req.Context.ProductName),
				Model:   "mock-v1",
				Usage: models.TokenUsage{
					PromptTokens:     120,
					CompletionTokens: 80,
					TotalTokens:      200,
				},
				CostEstimate: prompt.EstimateCost(200),
				CreatedAt:    time.Now().UTC(),
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.GenerationRequest) (models.GenerationResult, error) {
			return models.GenerationResult{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ models.GenerationRequest) (models.GenerationResult, error) {
			<-ctx.Done()
			return models.GenerationResult{}, prompt.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements CopyProvider.
var _ models.CopyProvider = (*MockProvider)(nil)
