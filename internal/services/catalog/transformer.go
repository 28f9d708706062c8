package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
)

var ErrNoActiveProducts = errors.New("catalog: no active products in price list")

const DefaultMarkupPercent = 10

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	amountPattern = regexp.MustCompile(`(?i)(\d+)\s*(diamond|uc|crystal|point|credit)`)
)

var amountUnits = map[string]string{
	"diamond": "Diamonds",
	"uc":      "UC",
	"crystal": "Genesis Crystals",
	"point":   "Points",
	"credit":  "Credits",
}

// Transformer turns the flat upstream price list into brand-grouped products.
// A negative MarkupPercent selects DefaultMarkupPercent.
type Transformer struct {
	Brands        *BrandTable
	MarkupPercent int
}

// Transform keeps records whose both active flags are true, groups them by
// brand and prices each variant with the markup. Products keep first-seen
// order; variants are sorted by selling price.
func (t Transformer) Transform(skus []digiflazz.SKU) ([]models.Product, error) {
	if len(skus) == 0 {
		return []models.Product{}, nil
	}

	var order []string
	byKey := map[string]*models.Product{}
	seen := map[string]bool{}

	for _, sku := range skus {
		if !sku.Active() {
			continue
		}
		brand := strings.TrimSpace(sku.Brand)
		code := strings.TrimSpace(sku.BuyerSKUCode)
		if brand == "" || code == "" {
			continue
		}

		key := BrandKey(brand)
		p, ok := byKey[key]
		if !ok {
			p = t.seed(key, brand)
			byKey[key] = p
			order = append(order, key)
		}

		// duplicate SKU codes keep the first record
		if seen[key+"\x00"+code] {
			continue
		}
		seen[key+"\x00"+code] = true

		base := int64(sku.Price)
		p.Variants = append(p.Variants, models.ProductVariant{
			ID:            code,
			Name:          sku.ProductName,
			Amount:        AmountLabel(sku.ProductName),
			Price:         MarkupPrice(base, t.markup()),
			OriginalPrice: base,
			Code:          code,
			Status:        models.StatusActive,
		})
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("%w (%d records filtered)", ErrNoActiveProducts, len(skus))
	}

	out := make([]models.Product, 0, len(order))
	for _, key := range order {
		p := byKey[key]
		sort.SliceStable(p.Variants, func(i, j int) bool {
			return p.Variants[i].Price < p.Variants[j].Price
		})
		out = append(out, *p)
	}
	return out, nil
}

func (t Transformer) seed(key, brand string) *models.Product {
	profile := t.brands().Lookup(brand)
	return &models.Product{
		ID:           key,
		Name:         brand + " " + profile.Currency,
		Brand:        brand,
		Category:     profile.Category,
		Code:         strings.ToUpper(key),
		Image:        profile.Image,
		Description:  "Top up " + profile.Currency + " untuk " + brand,
		Type:         "prepaid",
		Status:       models.StatusActive,
		IsPopular:    profile.Popular,
		GameIDConfig: profile.GameIDConfig,
	}
}

func (t Transformer) markup() int {
	if t.MarkupPercent < 0 {
		return DefaultMarkupPercent
	}
	return t.MarkupPercent
}

func (t Transformer) brands() *BrandTable {
	if t.Brands != nil {
		return t.Brands
	}
	bt, err := ParseBrandTable(defaultBrandTable)
	if err != nil {
		panic(err)
	}
	return bt
}

// BrandKey lower-cases the brand and joins whitespace runs with "-".
func BrandKey(brand string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(brand)), "-")
}

// AmountLabel extracts "<n> <unit>" from a product name, e.g.
// "Mobile Legends 86 Diamond" -> "86 Diamonds". Unknown names are returned as is.
func AmountLabel(name string) string {
	m := amountPattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[1] + " " + amountUnits[strings.ToLower(m[2])]
}

// MarkupPrice returns base * (100+percent) / 100 rounded half up.
func MarkupPrice(base int64, percent int) int64 {
	if base <= 0 {
		return 0
	}
	return (base*int64(100+percent) + 50) / 100
}
