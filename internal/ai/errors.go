package ai

import "github.com/kiranshivaraju/copyforge/internal/ai/prompt"

// Re-exported provider sentinels so callers only import this package.
var (
	ErrProviderUnavailable = prompt.ErrProviderUnavailable
	ErrInferenceTimeout    = prompt.ErrInferenceTimeout
	ErrInvalidResponse     = prompt.ErrInvalidResponse
	ErrEmptyContent        = prompt.ErrEmptyContent
)
