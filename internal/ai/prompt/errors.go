package prompt

import "errors"

// Sentinel errors shared by all provider implementations.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrEmptyContent        = errors.New("ai provider returned empty content")
)
