package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
)

type CategoryHandler struct {
	Catalog *catalog.Service
}

func NewCategoryHandler(svc *catalog.Service) *CategoryHandler {
	return &CategoryHandler{Catalog: svc}
}

type categoryItem struct {
	ID    models.Category `json:"id"`
	Name  string          `json:"name"`
	Count int             `json:"count"`
}

// GetCategories lists every category in display order with the number of
// visible products in it.
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	listing, err := h.Catalog.Products(c.UserContext(), catalog.UserView, "")
	if err != nil {
		return serverError(c, err, "Gagal mengambil kategori")
	}

	counts := map[models.Category]int{}
	for _, p := range listing.Products {
		counts[p.Category]++
	}

	out := make([]categoryItem, 0, len(models.Categories))
	for _, cat := range models.Categories {
		out = append(out, categoryItem{ID: cat, Name: cat.Label(), Count: counts[cat]})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}
