package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
)

type ProductHandler struct {
	Catalog *catalog.Service
}

func NewProductHandler(svc *catalog.Service) *ProductHandler {
	return &ProductHandler{Catalog: svc}
}

func listingMeta(l catalog.Listing) fiber.Map {
	meta := fiber.Map{"source": l.Source, "count": len(l.Products)}
	if l.SyncedAt != nil {
		meta["synced_at"] = l.SyncedAt.Format(time.RFC3339)
	}
	if l.Warning != "" {
		meta["warning"] = l.Warning
	}
	return meta
}

func (h *ProductHandler) ListPublic(c *fiber.Ctx) error {
	category := strings.TrimSpace(c.Query("category"))
	listing, err := h.Catalog.Products(c.UserContext(), catalog.UserView, category)
	if err != nil {
		return serverError(c, err, "Gagal memuat produk")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    listing.Products,
		"meta":    listingMeta(listing),
	})
}

func (h *ProductHandler) GetDetail(c *fiber.Ctx) error {
	p, _, err := h.Catalog.Product(c.UserContext(), catalog.UserView, c.Params("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, fiber.StatusNotFound, "Produk tidak ditemukan")
	}
	if err != nil {
		return serverError(c, err, "Gagal memuat produk")
	}
	return c.JSON(fiber.Map{"success": true, "data": p})
}
