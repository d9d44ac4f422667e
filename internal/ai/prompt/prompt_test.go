package prompt_test

import (
	"strings"
	"testing"

	"github.com/kiranshivaraju/copyforge/internal/ai/prompt"
	"github.com/kiranshivaraju/copyforge/pkg/models"
	"github.com/stretchr/testify/assert"
)

func sampleContext() models.ProductContext {
	return models.ProductContext{
		ProductName: "Walnut Standing Desk",
		ProductType: "simple",
		Price:       "599.00",
		SKU:         "WSD-100",
		Categories:  []string{"Office", "Furniture"},
		Tags:        []string{"ergonomic"},
		Attributes:  map[string][]string{"Material": {"Walnut", "Steel"}, "Height": {"Adjustable"}},
		Current: models.CurrentContent{
			Title:            "Walnut Standing Desk",
			ShortDescription: "A desk.",
		},
		Audience: "remote workers",
		Keywords: "standing desk, walnut",
	}
}

func TestSystem_KnownArtifact(t *testing.T) {
	sys := prompt.System(models.ArtifactSEOTitle)
	assert.Contains(t, sys, "professional copywriter")
	assert.Contains(t, sys, "SEO-optimized titles")
}

func TestSystem_UnknownArtifactFallsBack(t *testing.T) {
	sys := prompt.System("something-else")
	assert.Contains(t, sys, "professional copywriter")
	assert.Contains(t, sys, "high-quality e-commerce content")
}

func TestBuild_SubstitutesPlaceholders(t *testing.T) {
	p := prompt.Build(models.ArtifactTitle, sampleContext(), "professional")

	assert.Contains(t, p, "Walnut Standing Desk")
	assert.Contains(t, p, "remote workers")
	assert.NotContains(t, p, "{product_name}")
	assert.NotContains(t, p, "{audience}")
}

func TestBuild_KeywordsInSEOTitle(t *testing.T) {
	p := prompt.Build(models.ArtifactSEOTitle, sampleContext(), "professional")
	assert.Contains(t, p, "standing desk, walnut")
}

func TestBuild_ToneFallsBackToDefault(t *testing.T) {
	pc := sampleContext()
	pc.Tone = ""
	p := prompt.Build(models.ArtifactLongDescription, pc, "playful")
	assert.Contains(t, p, "playful tone")

	pc.Tone = "formal"
	p = prompt.Build(models.ArtifactLongDescription, pc, "playful")
	assert.Contains(t, p, "formal tone")
}

func TestBuild_TranslationsDefaultLanguage(t *testing.T) {
	pc := sampleContext()
	pc.Language = ""
	p := prompt.Build(models.ArtifactTranslations, pc, "professional")
	assert.Contains(t, p, "into English")

	pc.Language = "French"
	p = prompt.Build(models.ArtifactTranslations, pc, "professional")
	assert.Contains(t, p, "into French")
}

func TestBuild_IncludesProductInformationBlock(t *testing.T) {
	p := prompt.Build(models.ArtifactBullets, sampleContext(), "professional")

	assert.Contains(t, p, "Product Information:")
	assert.Contains(t, p, "Categories: Office, Furniture")
	assert.Contains(t, p, "Tags: ergonomic")
	assert.Contains(t, p, "Price: 599.00")
	assert.Contains(t, p, "SKU: WSD-100")
	// Attribute keys are sorted for stable prompts
	assert.Contains(t, p, "Attributes: Height: Adjustable; Material: Walnut, Steel")
}

func TestBuild_LongDescriptionIsTrimmed(t *testing.T) {
	pc := sampleContext()
	pc.Current.LongDescription = strings.Repeat("word ", 100)

	p := prompt.Build(models.ArtifactShortDescription, pc, "professional")
	assert.Contains(t, p, "...")

	trimmed := strings.Repeat("word ", 59) + "word..."
	assert.Contains(t, p, trimmed)
}

func TestBuild_UnknownArtifactFallsBack(t *testing.T) {
	p := prompt.Build("something-else", sampleContext(), "professional")
	assert.Contains(t, p, "Generate content for Walnut Standing Desk.")
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 0.0, prompt.EstimateCost(0))
	assert.Equal(t, 0.02, prompt.EstimateCost(1000))
	assert.InDelta(t, 0.005, prompt.EstimateCost(250), 1e-9)
}

func TestDescribe(t *testing.T) {
	label := prompt.Describe(models.ArtifactSEOTitle, sampleContext())
	assert.Equal(t, `seo_title for "Walnut Standing Desk"`, label)
}
