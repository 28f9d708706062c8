package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

//go:embed fallback_products.json
var fallbackProducts []byte

// FallbackProducts is the static catalog served when nothing has been synced
// and the upstream cannot be reached.
func FallbackProducts() ([]models.Product, error) {
	var out []models.Product
	if err := json.Unmarshal(fallbackProducts, &out); err != nil {
		return nil, fmt.Errorf("decode fallback catalog: %w", err)
	}
	return out, nil
}
