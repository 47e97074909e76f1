package library

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReviewThreshold is the confidence below which results need review.
const ReviewThreshold = 0.80

//go:embed fixtures/default.yaml
var fixtureFS embed.FS

// Extracted is one recipe/ingredient pairing found on an index page.
type Extracted struct {
	RecipeName string  `yaml:"recipe"`
	PageNumber int     `yaml:"page"`
	Ingredient string  `yaml:"ingredient"`
	Confidence float64 `yaml:"confidence"`
}

// NeedsReview reports whether the extraction is too uncertain to trust.
func (e Extracted) NeedsReview() bool {
	return e.Confidence < ReviewThreshold
}

// Extractor reads recipes from one index page.
type Extractor interface {
	Extract(ctx context.Context, page Page) ([]Extracted, error)
}

// FixturePage is the scripted outcome for one page.
type FixturePage struct {
	Recipes []Extracted `yaml:"recipes"`
	Error   string      `yaml:"error,omitempty"`
}

// Fixtures replays scripted results by page order.
type Fixtures struct {
	Pages []FixturePage `yaml:"pages"`
}

// DefaultFixtures returns the built-in scripted results.
func DefaultFixtures() (*Fixtures, error) {
	data, err := fixtureFS.ReadFile("fixtures/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read default fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// LoadFixtures reads scripted results from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes scripted results.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if len(f.Pages) == 0 {
		return nil, errors.New("fixtures define no pages")
	}
	return &f, nil
}

// Extract returns the scripted result for the page, wrapping around when
// there are more pages than fixtures.
func (f *Fixtures) Extract(ctx context.Context, page Page) ([]Extracted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fp := f.Pages[page.Order%len(f.Pages)]
	if fp.Error != "" {
		return nil, errors.New(fp.Error)
	}
	return append([]Extracted(nil), fp.Recipes...), nil
}
