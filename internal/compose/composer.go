// Package compose orchestrates copy generation and applies results to
// products. It is the only place that writes product fields or the
// per-product history log.
package compose

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copyforge/internal/store"
	"github.com/kiranshivaraju/copyforge/pkg/models"
)

var (
	ErrInvalidArtifact = errors.New("unsupported artifact")
	ErrFieldLocked     = errors.New("field is locked from AI updates")
)

// Composer builds product context, calls the copy provider, and records history.
type Composer struct {
	provider models.CopyProvider
	store    store.Store
	timeout  time.Duration
}

// NewComposer creates a new Composer.
func NewComposer(provider models.CopyProvider, st store.Store, timeout time.Duration) *Composer {
	return &Composer{provider: provider, store: st, timeout: timeout}
}

// Provider returns the name of the configured provider.
func (c *Composer) Provider() string { return c.provider.Name() }

// BuildContext assembles the prompt context from catalog data plus overrides.
func (c *Composer) BuildContext(p *models.Product, overrides models.ContextOverrides) models.ProductContext {
	return models.ProductContext{
		ProductName:  p.Name,
		ProductType:  p.ProductType,
		Price:        p.Price,
		RegularPrice: p.RegularPrice,
		SalePrice:    p.SalePrice,
		SKU:          p.SKU,
		StockStatus:  p.StockStatus,
		Categories:   p.Categories,
		Tags:         p.Tags,
		Attributes:   p.Attributes,
		Current: models.CurrentContent{
			Title:            p.Name,
			ShortDescription: p.ShortDescription,
			LongDescription:  p.LongDescription,
		},
		Audience: overrides.Audience,
		Tone:     overrides.Tone,
		Keywords: overrides.Keywords,
		Features: overrides.Features,
		Language: overrides.Language,
	}
}

// Generate produces copy for one artifact of one product and appends the
// result to the product's history log. It does not apply the content.
func (c *Composer) Generate(ctx context.Context, productID int64, artifact string, overrides models.ContextOverrides, requestedBy *uuid.UUID) (models.GenerationResult, error) {
	if !models.ValidArtifact(artifact) {
		return models.GenerationResult{}, fmt.Errorf("%w: %q", ErrInvalidArtifact, artifact)
	}

	product, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("load product %d: %w", productID, err)
	}

	pc := c.BuildContext(product, overrides)

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.provider.Generate(genCtx, models.GenerationRequest{
		Artifact: artifact,
		Context:  pc,
	})
	if err != nil {
		return models.GenerationResult{}, err
	}

	entry := &models.HistoryEntry{
		ID:           uuid.New(),
		ProductID:    productID,
		Artifact:     artifact,
		Content:      result.Content,
		Model:        result.Model,
		Tokens:       result.Usage.TotalTokens,
		CostEstimate: result.CostEstimate,
		PromptHash:   hashContext(pc),
		RequestedBy:  requestedBy,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.AppendHistory(ctx, entry); err != nil {
		return models.GenerationResult{}, fmt.Errorf("record history: %w", err)
	}

	return result, nil
}

// ArtifactResult is the per-artifact outcome of a multi-artifact generation.
type ArtifactResult struct {
	Success      bool    `json:"success"`
	Content      string  `json:"content,omitempty"`
	Model        string  `json:"model,omitempty"`
	Tokens       int     `json:"tokens,omitempty"`
	CostEstimate float64 `json:"cost_estimate,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// GenerateMany generates several artifacts for one product. A failure on one
// artifact does not abort the rest; each result carries its own error text.
func (c *Composer) GenerateMany(ctx context.Context, productID int64, artifacts []string, overrides models.ContextOverrides, apply bool, requestedBy *uuid.UUID) (map[string]ArtifactResult, error) {
	valid := artifacts[:0:0]
	for _, a := range artifacts {
		if models.ValidArtifact(a) {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid artifacts specified", ErrInvalidArtifact)
	}

	// Fail the whole request up front when the product does not exist
	// instead of reporting the same error once per artifact.
	if _, err := c.store.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	results := make(map[string]ArtifactResult, len(valid))
	for _, artifact := range valid {
		gen, err := c.Generate(ctx, productID, artifact, overrides, requestedBy)
		if err != nil {
			results[artifact] = ArtifactResult{Success: false, Error: err.Error()}
			continue
		}
		if apply {
			if err := c.Apply(ctx, productID, artifact, gen.Content); err != nil {
				results[artifact] = ArtifactResult{Success: false, Error: err.Error()}
				continue
			}
		}
		results[artifact] = ArtifactResult{
			Success:      true,
			Content:      gen.Content,
			Model:        gen.Model,
			Tokens:       gen.Usage.TotalTokens,
			CostEstimate: gen.CostEstimate,
		}
	}
	return results, nil
}

// Apply writes content into the product field the artifact maps to.
// Locked fields reject the write.
func (c *Composer) Apply(ctx context.Context, productID int64, artifact, content string) error {
	if !models.ValidArtifact(artifact) {
		return fmt.Errorf("%w: %q", ErrInvalidArtifact, artifact)
	}

	product, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if product.LockedFields[artifact] {
		return fmt.Errorf("%w: %s", ErrFieldLocked, artifact)
	}

	switch artifact {
	case models.ArtifactTitle, models.ArtifactShortDescription, models.ArtifactLongDescription,
		models.ArtifactSEOTitle, models.ArtifactSEODescription:
		err = c.store.UpdateProductText(ctx, productID, artifact, content)
	default:
		err = c.store.UpdateProductCopyBlob(ctx, productID, artifact, content)
	}
	if err != nil {
		return fmt.Errorf("apply %s to product %d: %w", artifact, productID, err)
	}
	return nil
}

// Rollback re-applies a previous generation from the history log.
func (c *Composer) Rollback(ctx context.Context, productID int64, entryID uuid.UUID) error {
	entry, err := c.store.GetHistoryEntry(ctx, productID, entryID)
	if err != nil {
		return fmt.Errorf("load history entry: %w", err)
	}
	return c.Apply(ctx, productID, entry.Artifact, entry.Content)
}

// History returns the product's generation log, newest first.
func (c *Composer) History(ctx context.Context, productID int64) ([]*models.HistoryEntry, error) {
	return c.store.ListHistory(ctx, productID)
}

// SetFieldLock toggles whether an artifact's field accepts AI updates.
func (c *Composer) SetFieldLock(ctx context.Context, productID int64, artifact string, locked bool) error {
	if !models.ValidArtifact(artifact) {
		return fmt.Errorf("%w: %q", ErrInvalidArtifact, artifact)
	}

	product, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}

	locks := product.LockedFields
	if locks == nil {
		locks = make(map[string]bool)
	}
	if locked {
		locks[artifact] = true
	} else {
		delete(locks, artifact)
	}
	return c.store.UpdateProductLocks(ctx, productID, locks)
}

func hashContext(pc models.ProductContext) string {
	raw, err := json.Marshal(pc)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
