// Package models contains shared data models used across the CopyForge codebase.
package models

import (
	"context"
	"time"
)

// Supported artifact kinds. Each names one piece of product copy the
// service can generate.
const (
	ArtifactTitle            = "title"
	ArtifactShortDescription = "short_description"
	ArtifactLongDescription  = "long_description"
	ArtifactSEOTitle         = "seo_title"
	ArtifactSEODescription   = "seo_description"
	ArtifactBullets          = "bullets"
	ArtifactFAQ              = "faq"
	ArtifactAttributes       = "attributes"
	ArtifactTranslations     = "translations"
)

// SupportedArtifacts lists every valid artifact kind in a stable order.
var SupportedArtifacts = []string{
	ArtifactTitle,
	ArtifactShortDescription,
	ArtifactLongDescription,
	ArtifactSEOTitle,
	ArtifactSEODescription,
	ArtifactBullets,
	ArtifactFAQ,
	ArtifactAttributes,
	ArtifactTranslations,
}

// ValidArtifact reports whether kind names a supported artifact.
func ValidArtifact(kind string) bool {
	for _, a := range SupportedArtifacts {
		if a == kind {
			return true
		}
	}
	return false
}

// CopyProvider is the core interface that all LLM integrations must implement.
// Never call specific providers directly — always inject this interface.
type CopyProvider interface {
	// Generate produces copy for one artifact from the assembled product context.
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}

// GenerationRequest is the input to a single generation call.
type GenerationRequest struct {
	Artifact string
	Context  ProductContext
	// Model overrides the configured default when non-empty.
	Model string
}

// ProductContext is everything the prompt builder knows about a product.
type ProductContext struct {
	ProductName  string              `json:"product_name"`
	ProductType  string              `json:"product_type"`
	Price        string              `json:"price"`
	RegularPrice string              `json:"regular_price"`
	SalePrice    string              `json:"sale_price"`
	SKU          string              `json:"sku"`
	StockStatus  string              `json:"stock_status"`
	Categories   []string            `json:"categories"`
	Tags         []string            `json:"tags"`
	Attributes   map[string][]string `json:"attributes"`
	Current      CurrentContent      `json:"current_content"`

	// Caller-supplied overrides folded in on top of catalog data.
	Audience string `json:"audience,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Features string `json:"features,omitempty"`
	Language string `json:"language,omitempty"`
}

// CurrentContent is the copy already on the product, given to the model
// as reference material.
type CurrentContent struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
}

// ContextOverrides are the per-request knobs a caller may set when enqueuing.
type ContextOverrides struct {
	Audience string `json:"audience,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Features string `json:"features,omitempty"`
	Language string `json:"language,omitempty"`
}

// TokenUsage is the provider-reported token breakdown for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult is the output of a successful generation call.
type GenerationResult struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	Usage        TokenUsage `json:"usage"`
	CostEstimate float64    `json:"cost_estimate"`
	CreatedAt    time.Time  `json:"created_at"`
}
