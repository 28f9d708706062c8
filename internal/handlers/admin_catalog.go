package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
)

type AdminCatalogHandler struct {
	Catalog *catalog.Service
}

func NewAdminCatalogHandler(svc *catalog.Service) *AdminCatalogHandler {
	return &AdminCatalogHandler{Catalog: svc}
}

func (h *AdminCatalogHandler) ListProducts(c *fiber.Ctx) error {
	listing, err := h.Catalog.Products(c.UserContext(), catalog.AdminView, strings.TrimSpace(c.Query("category")))
	if err != nil {
		return serverError(c, err, "Gagal memuat produk")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    listing.Products,
		"meta":    listingMeta(listing),
	})
}

func (h *AdminCatalogHandler) Sync(c *fiber.Ctx) error {
	res, err := h.Catalog.Sync(c.UserContext())
	switch {
	case errors.Is(err, digiflazz.ErrNotConfigured):
		return fail(c, fiber.StatusBadRequest, "Kredensial Digiflazz belum diatur")
	case errors.Is(err, digiflazz.ErrEmptyCatalog), errors.Is(err, catalog.ErrNoActiveProducts):
		return fail(c, fiber.StatusUnprocessableEntity, "Tidak ada produk aktif dari Digiflazz, data lama dipertahankan")
	case err != nil:
		return fail(c, fiber.StatusBadGateway, "Sinkronisasi gagal: "+err.Error())
	}

	data := fiber.Map{
		"fresh":         res.Fresh,
		"product_count": len(res.Products),
		"synced_at":     res.SyncedAt,
	}
	msg := "Sinkronisasi berhasil"
	if !res.Fresh {
		msg = "Digiflazz tidak dapat dihubungi, menampilkan data tersimpan"
		data["warning"] = res.Err.Error()
	}
	return c.JSON(fiber.Map{"success": true, "message": msg, "data": data})
}

func (h *AdminCatalogHandler) SyncInfo(c *fiber.Ctx) error {
	info, err := h.Catalog.SyncInfo(c.UserContext())
	if err != nil {
		return serverError(c, err, "Gagal memuat status sinkronisasi")
	}
	return c.JSON(fiber.Map{"success": true, "data": info})
}

func (h *AdminCatalogHandler) ClearSynced(c *fiber.Ctx) error {
	if err := h.Catalog.ClearSynced(c.UserContext()); err != nil {
		return serverError(c, err, "Gagal menghapus data sinkronisasi")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Data sinkronisasi dihapus"})
}

// requireProduct resolves :id in the admin view so overrides are only
// written for products that exist.
func (h *AdminCatalogHandler) requireProduct(c *fiber.Ctx) (models.Product, bool, error) {
	p, _, err := h.Catalog.Product(c.UserContext(), catalog.AdminView, c.Params("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		return models.Product{}, false, fail(c, fiber.StatusNotFound, "Produk tidak ditemukan")
	}
	if err != nil {
		return models.Product{}, false, serverError(c, err, "Gagal memuat produk")
	}
	return p, true, nil
}

func overrideResult(c *fiber.Ctx, err error) error {
	if errors.Is(err, catalog.ErrInvalidOverride) {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return serverError(c, err, "Gagal menyimpan perubahan")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Perubahan disimpan"})
}

type statusReq struct {
	Status models.Status `json:"status"`
}

func (h *AdminCatalogHandler) SetProductStatus(c *fiber.Ctx) error {
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	return overrideResult(c, h.Catalog.Overrides().SetProductStatus(c.UserContext(), p.ID, req.Status))
}

func (h *AdminCatalogHandler) SetVariantStatus(c *fiber.Ctx) error {
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	v, found := p.Variant(c.Params("variantId"))
	if !found {
		return fail(c, fiber.StatusNotFound, "Nominal tidak ditemukan")
	}
	return overrideResult(c, h.Catalog.Overrides().SetVariantStatus(c.UserContext(), p.ID, v.ID, req.Status))
}

type priceReq struct {
	Price int64 `json:"price"`
}

func (h *AdminCatalogHandler) SetVariantPrice(c *fiber.Ctx) error {
	var req priceReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	v, found := p.Variant(c.Params("variantId"))
	if !found {
		return fail(c, fiber.StatusNotFound, "Nominal tidak ditemukan")
	}
	return overrideResult(c, h.Catalog.Overrides().SetPrice(c.UserContext(), p.ID, v.ID, req.Price))
}

type imageReq struct {
	Image string `json:"image"`
}

func (h *AdminCatalogHandler) SetImage(c *fiber.Ctx) error {
	var req imageReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	return overrideResult(c, h.Catalog.Overrides().SetImage(c.UserContext(), p.ID, req.Image))
}

func (h *AdminCatalogHandler) SetGameIDConfig(c *fiber.Ctx) error {
	var cfg models.GameIDConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	return overrideResult(c, h.Catalog.Overrides().SetGameIDConfig(c.UserContext(), p.ID, cfg))
}

func (h *AdminCatalogHandler) ClearGameIDConfig(c *fiber.Ctx) error {
	p, ok, err := h.requireProduct(c)
	if !ok {
		return err
	}
	return overrideResult(c, h.Catalog.Overrides().ClearGameIDConfig(c.UserContext(), p.ID))
}

func (h *AdminCatalogHandler) Brands(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.Catalog.Brands()})
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func (h *AdminCatalogHandler) GetSettings(c *fiber.Ctx) error {
	creds, src, err := h.Catalog.Credentials(c.UserContext())
	if err != nil {
		return serverError(c, err, "Gagal memuat pengaturan")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"username":   creds.Username,
			"api_key":    maskKey(creds.APIKey),
			"source":     src,
			"configured": creds.Configured(),
		},
	})
}

type settingsReq struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

func (h *AdminCatalogHandler) SaveSettings(c *fiber.Ctx) error {
	var req settingsReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		errs.Add("username", "Username wajib diisi")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		errs.Add("api_key", "API key wajib diisi")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	creds := digiflazz.Credentials{Username: req.Username, APIKey: req.APIKey}
	if err := h.Catalog.SetCredentials(c.UserContext(), creds); err != nil {
		return serverError(c, err, "Gagal menyimpan pengaturan")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Pengaturan disimpan"})
}

func (h *AdminCatalogHandler) ClearSettings(c *fiber.Ctx) error {
	if err := h.Catalog.ClearCredentials(c.UserContext()); err != nil {
		return serverError(c, err, "Gagal menghapus pengaturan")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Pengaturan dihapus"})
}
