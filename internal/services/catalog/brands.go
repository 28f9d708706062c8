package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

//go:embed brands.json
var defaultBrandTable []byte

// BrandProfile is the presentation defaults applied to every product of a
// brand. Empty fields inherit from the table's default profile.
type BrandProfile struct {
	Name         string               `json:"name"`
	Keywords     []string             `json:"keywords,omitempty"`
	Category     models.Category      `json:"category"`
	Currency     string               `json:"currency,omitempty"`
	Image        string               `json:"image,omitempty"`
	Popular      bool                 `json:"popular"`
	GameIDConfig *models.GameIDConfig `json:"game_id_config,omitempty"`
}

type BrandTable struct {
	Default BrandProfile   `json:"default"`
	Brands  []BrandProfile `json:"brands"`
}

// LoadBrandTable reads the table at path, or the built-in table when path is
// empty.
func LoadBrandTable(path string) (*BrandTable, error) {
	raw := defaultBrandTable
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read brand table: %w", err)
		}
		raw = b
	}
	return ParseBrandTable(raw)
}

func ParseBrandTable(raw []byte) (*BrandTable, error) {
	var t BrandTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode brand table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *BrandTable) validate() error {
	if !validCategory(t.Default.Category) {
		return fmt.Errorf("brand table: default category %q is unknown", t.Default.Category)
	}
	if t.Default.Currency == "" {
		return fmt.Errorf("brand table: default currency is required")
	}
	if t.Default.GameIDConfig == nil {
		return fmt.Errorf("brand table: default game_id_config is required")
	}
	for i, b := range t.Brands {
		if len(b.Keywords) == 0 {
			return fmt.Errorf("brand table: entry %d (%s) has no keywords", i, b.Name)
		}
		if b.Category != "" && !validCategory(b.Category) {
			return fmt.Errorf("brand table: entry %d (%s) has unknown category %q", i, b.Name, b.Category)
		}
	}
	return nil
}

// Lookup returns the profile of the first entry whose keyword occurs in brand
// (case-insensitive), filled in from the default profile.
func (t *BrandTable) Lookup(brand string) BrandProfile {
	lower := strings.ToLower(brand)
	for _, b := range t.Brands {
		for _, kw := range b.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return t.fill(b)
			}
		}
	}
	return t.fill(t.Default)
}

func (t *BrandTable) fill(b BrandProfile) BrandProfile {
	out := b
	if out.Category == "" {
		out.Category = t.Default.Category
	}
	if out.Currency == "" {
		out.Currency = t.Default.Currency
	}
	if out.Image == "" {
		out.Image = t.Default.Image
	}
	cfg := b.GameIDConfig
	if cfg == nil {
		cfg = t.Default.GameIDConfig
	}
	if cfg != nil {
		c := *cfg
		out.GameIDConfig = &c
	}
	out.Keywords = slices.Clone(b.Keywords)
	return out
}

func validCategory(c models.Category) bool {
	return slices.Contains(models.Categories, c)
}
