package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the subject entity copy gets generated for and applied to.
type Product struct {
	ID               int64               `db:"id"                json:"id"`
	Name             string              `db:"name"              json:"name"`
	ProductType      string              `db:"product_type"      json:"product_type"`
	Price            string              `db:"price"             json:"price"`
	RegularPrice     string              `db:"regular_price"     json:"regular_price"`
	SalePrice        string              `db:"sale_price"        json:"sale_price"`
	SKU              string              `db:"sku"               json:"sku"`
	StockStatus      string              `db:"stock_status"      json:"stock_status"`
	ShortDescription string              `db:"short_description" json:"short_description"`
	LongDescription  string              `db:"long_description"  json:"long_description"`
	SEOTitle         string              `db:"seo_title"         json:"seo_title"`
	SEODescription   string              `db:"seo_description"   json:"seo_description"`
	Attributes       map[string][]string `db:"attributes"        json:"attributes"`
	Categories       []string            `db:"categories"        json:"categories"`
	Tags             []string            `db:"tags"              json:"tags"`
	// GeneratedCopy holds applied artifacts that have no dedicated column
	// (bullets, faq, attributes, translations), keyed by artifact.
	GeneratedCopy map[string]string `db:"generated_copy" json:"generated_copy"`
	LockedFields  map[string]bool   `db:"locked_fields"  json:"locked_fields"`
	CreatedAt     time.Time         `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"     json:"updated_at"`
}

// HistoryEntry records one generation applied to a product. The store keeps
// at most the 20 newest entries per product; older ones are trimmed on insert.
type HistoryEntry struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	ProductID    int64      `db:"product_id"    json:"product_id"`
	Artifact     string     `db:"artifact"      json:"artifact"`
	Content      string     `db:"content"       json:"content"`
	Model        string     `db:"model"         json:"model"`
	Tokens       int        `db:"tokens"        json:"tokens"`
	CostEstimate float64    `db:"cost_estimate" json:"cost_estimate"`
	PromptHash   string     `db:"prompt_hash"   json:"prompt_hash"`
	RequestedBy  *uuid.UUID `db:"requested_by"  json:"requested_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
}
