package catalog

import "github.com/Windi-Fikriyansyah/topup_be/internal/models"

// Merge applies overrides to a copy of base. Product status, image and game
// id config are replaced whole; variant price and status are replaced per
// variant. base is never modified and Merge(Merge(b, o), o) == Merge(b, o).
func Merge(base []models.Product, o Overrides) []models.Product {
	out := make([]models.Product, 0, len(base))
	for _, src := range base {
		p := src.Clone()

		if st, ok := o.Statuses[p.ID]; ok && st.Valid() {
			p.Status = st
		}
		if img, ok := o.Images[p.ID]; ok && img != "" {
			p.Image = img
		}
		if cfg, ok := o.GameIDConfigs[p.ID]; ok {
			c := cfg
			p.GameIDConfig = &c
		}

		for i := range p.Variants {
			v := &p.Variants[i]
			key := VariantKey(p.ID, v.ID)
			if price, ok := o.Prices[key]; ok && price > 0 {
				v.Price = price
			}
			if st, ok := o.Statuses[key]; ok && st.Valid() {
				v.Status = st
			}
		}
		out = append(out, p)
	}
	return out
}

// FilterVisible keeps active products with at least one active variant and
// strips their inactive variants.
func FilterVisible(products []models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Status != models.StatusActive {
			continue
		}
		kept := make([]models.ProductVariant, 0, len(p.Variants))
		for _, v := range p.Variants {
			if v.Status == models.StatusActive {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		p.Variants = kept
		out = append(out, p)
	}
	return out
}

// FilterCategory keeps products of the given category; "" and "all" keep
// everything.
func FilterCategory(products []models.Product, category string) []models.Product {
	if category == "" || category == "all" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if string(p.Category) == category {
			out = append(out, p)
		}
	}
	return out
}
