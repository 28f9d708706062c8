package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

func baseCatalog() []models.Product {
	ml := models.Product{
		ID:           "mobile-legends",
		Status:       models.StatusActive,
		Category:     models.CategoryMOBA,
		Image:        "ml.jpg",
		GameIDConfig: &models.GameIDConfig{RequiresGameID: true, GameIDLabel: "User ID"},
	}
	ml.Variants = []models.ProductVariant{
		{ID: "ML5", Price: 1540, Status: models.StatusActive},
		{ID: "ML86", Price: 22000, Status: models.StatusActive},
	}

	val := models.Product{
		ID:       "valorant",
		Status:   models.StatusActive,
		Category: models.CategoryFPS,
	}
	val.Variants = []models.ProductVariant{
		{ID: "VP125", Price: 15400, Status: models.StatusActive},
	}
	return []models.Product{ml, val}
}

func TestMergeAppliesOverrides(t *testing.T) {
	o := Overrides{
		Prices:        map[string]int64{"mobile-legends-ML86": 21000},
		Statuses:      map[string]models.Status{"valorant": models.StatusInactive, "mobile-legends-ML5": models.StatusInactive},
		Images:        map[string]string{"mobile-legends": "custom.jpg"},
		GameIDConfigs: map[string]models.GameIDConfig{"mobile-legends": {RequiresGameID: true, GameIDLabel: "Player"}},
	}

	out := Merge(baseCatalog(), o)
	require.Len(t, out, 2)

	ml := out[0]
	assert.Equal(t, "custom.jpg", ml.Image)
	assert.Equal(t, "Player", ml.GameIDConfig.GameIDLabel)
	assert.Equal(t, models.GameIDConfig{RequiresGameID: true, GameIDLabel: "Player"}, *ml.GameIDConfig, "replaced whole")
	assert.Equal(t, models.StatusInactive, ml.Variants[0].Status)
	assert.Equal(t, int64(21000), ml.Variants[1].Price)
	assert.Equal(t, models.StatusInactive, out[1].Status)
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := baseCatalog()
	snapshot := baseCatalog()
	o := Overrides{
		Prices:        map[string]int64{"mobile-legends-ML5": 1},
		Statuses:      map[string]models.Status{"mobile-legends": models.StatusInactive},
		GameIDConfigs: map[string]models.GameIDConfig{"mobile-legends": {GameIDLabel: "x"}},
	}

	out := Merge(base, o)
	out[0].Variants[1].Price = 999
	out[0].GameIDConfig.GameIDLabel = "mutated"

	assert.Equal(t, snapshot, base)
}

func TestMergeIsIdempotent(t *testing.T) {
	o := Overrides{
		Prices:   map[string]int64{"valorant-VP125": 15000},
		Statuses: map[string]models.Status{"mobile-legends-ML86": models.StatusInactive},
		Images:   map[string]string{"valorant": "v.jpg"},
	}
	once := Merge(baseCatalog(), o)
	twice := Merge(once, o)
	assert.Equal(t, once, twice)
}

func TestMergeIgnoresInvalidEntries(t *testing.T) {
	o := Overrides{
		Prices:   map[string]int64{"valorant-VP125": 0},
		Statuses: map[string]models.Status{"valorant": "archived"},
		Images:   map[string]string{"valorant": ""},
	}
	out := Merge(baseCatalog(), o)
	assert.Equal(t, int64(15400), out[1].Variants[0].Price)
	assert.Equal(t, models.StatusActive, out[1].Status)
	assert.Empty(t, out[1].Image)
}

func TestCustomPriceWinsOverBase(t *testing.T) {
	base := baseCatalog()
	base[0].Variants[1].Price = 99999 // a resync changed the upstream price
	out := Merge(base, Overrides{Prices: map[string]int64{"mobile-legends-ML86": 21000}})
	assert.Equal(t, int64(21000), out[0].Variants[1].Price)
}

func TestFilterVisible(t *testing.T) {
	products := baseCatalog()
	products[1].Status = models.StatusInactive
	products[0].Variants[0].Status = models.StatusInactive

	out := FilterVisible(products)
	require.Len(t, out, 1)
	assert.Equal(t, "mobile-legends", out[0].ID)
	require.Len(t, out[0].Variants, 1)
	assert.Equal(t, "ML86", out[0].Variants[0].ID)

	// the input slice keeps every variant
	assert.Len(t, products[0].Variants, 2)
}

func TestFilterVisibleDropsProductsWithoutActiveVariants(t *testing.T) {
	products := baseCatalog()
	for i := range products[0].Variants {
		products[0].Variants[i].Status = models.StatusInactive
	}

	out := FilterVisible(products)
	require.Len(t, out, 1)
	assert.Equal(t, "valorant", out[0].ID)
}

func TestFilterVisibleInvariant(t *testing.T) {
	o := Overrides{Statuses: map[string]models.Status{
		"valorant-VP125":      models.StatusInactive,
		"mobile-legends-ML5":  models.StatusInactive,
		"mobile-legends-ML86": models.StatusActive,
	}}
	for _, p := range FilterVisible(Merge(baseCatalog(), o)) {
		assert.Equal(t, models.StatusActive, p.Status)
		require.NotEmpty(t, p.Variants)
		for _, v := range p.Variants {
			assert.Equal(t, models.StatusActive, v.Status)
		}
	}
}

func TestFilterCategory(t *testing.T) {
	assert.Len(t, FilterCategory(baseCatalog(), ""), 2)
	assert.Len(t, FilterCategory(baseCatalog(), "all"), 2)
	out := FilterCategory(baseCatalog(), "fps")
	require.Len(t, out, 1)
	assert.Equal(t, "valorant", out[0].ID)
	assert.Empty(t, FilterCategory(baseCatalog(), "racing"))
}
