// Package prompt assembles chat messages for product copy generation.
// Providers share it so every backend sends the same instructions.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiranshivaraju/copyforge/pkg/models"
)

// Params are the generation knobs shared by all providers.
type Params struct {
	Temperature float64
	MaxTokens   int
	// Tone is used when the request context does not set one.
	Tone string
}

const basePrompt = "You are a professional copywriter specializing in e-commerce content. " +
	"Generate direct, concise content without conversational phrases like 'of course', " +
	"'certainly', or 'I'd be happy to help'. Focus on delivering the requested content " +
	"immediately without explanations or introductory text. " +
	"Avoid any profanity or inappropriate language. " +
	"Ensure content is brand-safe and appropriate for all audiences. "

var systemPrompts = map[string]string{
	models.ArtifactTitle: "Generate compelling, SEO-friendly product titles that capture " +
		"attention and highlight key benefits. Keep titles concise but descriptive.",
	models.ArtifactShortDescription: "Write brief, engaging product descriptions (2-3 sentences) " +
		"that summarize the main benefits and appeal to customers.",
	models.ArtifactLongDescription: "Create detailed product descriptions that include features, " +
		"benefits, use cases, and specifications. Use persuasive language and structure content " +
		"with paragraphs or bullet points.",
	models.ArtifactSEOTitle: "Generate SEO-optimized titles for search engines. Include target " +
		"keywords naturally while maintaining readability. Keep under 60 characters.",
	models.ArtifactSEODescription: "Write SEO meta descriptions that encourage clicks from search " +
		"results. Include target keywords and keep under 155 characters.",
	models.ArtifactBullets: "Create 5-7 bullet points highlighting key features and benefits. " +
		"Use action-oriented language and focus on customer value.",
	models.ArtifactFAQ: "Generate 5 frequently asked questions and comprehensive answers about " +
		"the product. Focus on common customer concerns and objections.",
	models.ArtifactAttributes: "Extract product specifications and attributes from the " +
		"description. Return as key-value pairs.",
	models.ArtifactTranslations: "Translate the product content into the requested language, " +
		"keeping tone, formatting, and marketing intent intact.",
}

var templates = map[string]string{
	models.ArtifactTitle:            "Generate a compelling product title for {product_name} that highlights its key features and appeals to {audience}.",
	models.ArtifactShortDescription: "Write a brief, engaging product description for {product_name} that captures the main benefits in 2-3 sentences.",
	models.ArtifactLongDescription:  "Create a detailed product description for {product_name} including features, benefits, and use cases. Use a {tone} tone.",
	models.ArtifactSEOTitle:         "Generate an SEO-optimized title for {product_name} targeting keywords: {keywords}",
	models.ArtifactSEODescription:   "Write an SEO meta description for {product_name} that includes target keywords and stays under 155 characters.",
	models.ArtifactBullets:          "Create 5-7 bullet points highlighting the key features and benefits of {product_name}.",
	models.ArtifactFAQ:              "Generate 5 frequently asked questions and answers about {product_name}.",
	models.ArtifactAttributes:       "Extract key product specifications and attributes for {product_name}.",
	models.ArtifactTranslations:     "Translate the current content of {product_name} into {language}. Return only the translated text.",
}

// System returns the system message for the artifact.
func System(artifact string) string {
	if sp, ok := systemPrompts[artifact]; ok {
		return basePrompt + sp
	}
	return basePrompt + "Generate high-quality e-commerce content based on the provided template and context."
}

// Build renders the user message: the artifact template with placeholders
// substituted, followed by a product information block.
func Build(artifact string, pc models.ProductContext, defaultTone string) string {
	template, ok := templates[artifact]
	if !ok {
		template = "Generate content for {product_name}."
	}

	tone := pc.Tone
	if tone == "" {
		tone = defaultTone
	}
	language := pc.Language
	if language == "" {
		language = "English"
	}

	replacements := map[string]string{
		"{product_name}": pc.ProductName,
		"{categories}":   strings.Join(pc.Categories, ", "),
		"{attributes}":   formatAttributes(pc.Attributes),
		"{price}":        pc.Price,
		"{audience}":     pc.Audience,
		"{tone}":         tone,
		"{keywords}":     pc.Keywords,
		"{features}":     pc.Features,
		"{language}":     language,
	}

	p := template
	for placeholder, value := range replacements {
		p = strings.ReplaceAll(p, placeholder, value)
	}

	if info := contextInfo(pc); info != "" {
		p += "\n\nProduct Information:\n" + info
	}
	return p
}

func formatAttributes(attrs map[string][]string) string {
	if len(attrs) == 0 {
		return ""
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(attrs[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func contextInfo(pc models.ProductContext) string {
	var parts []string

	if pc.ProductName != "" {
		parts = append(parts, "Product: "+pc.ProductName)
	}
	if len(pc.Categories) > 0 {
		parts = append(parts, "Categories: "+strings.Join(pc.Categories, ", "))
	}
	if len(pc.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(pc.Tags, ", "))
	}
	if attrs := formatAttributes(pc.Attributes); attrs != "" {
		parts = append(parts, "Attributes: "+attrs)
	}
	if pc.Price != "" {
		parts = append(parts, "Price: "+pc.Price)
	}
	if pc.SKU != "" {
		parts = append(parts, "SKU: "+pc.SKU)
	}
	if pc.Current.Title != "" {
		parts = append(parts, "Current Title: "+pc.Current.Title)
	}
	if pc.Current.ShortDescription != "" {
		parts = append(parts, "Current Short Description: "+trimWords(pc.Current.ShortDescription, 20))
	}
	if pc.Current.LongDescription != "" {
		parts = append(parts, "Current Description: "+trimWords(pc.Current.LongDescription, 60))
	}
	if pc.Features != "" {
		parts = append(parts, "Key Features: "+pc.Features)
	}
	return strings.Join(parts, "\n")
}

func trimWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + "..."
}

// EstimateCost converts a total token count into a rough dollar estimate.
func EstimateCost(totalTokens int) float64 {
	return float64(totalTokens) / 1000 * 0.02
}

// Describe returns a short label for logs, e.g. "seo_title for \"Walnut Desk\"".
func Describe(artifact string, pc models.ProductContext) string {
	return fmt.Sprintf("%s for %q", artifact, pc.ProductName)
}
