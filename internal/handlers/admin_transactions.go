package handlers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/ledger"
)

const recentLimit = 5

type AdminTransactionHandler struct {
	Ledger *ledger.Service
}

func NewAdminTransactionHandler(svc *ledger.Service) *AdminTransactionHandler {
	return &AdminTransactionHandler{Ledger: svc}
}

func filterFrom(c *fiber.Ctx) (ledger.Filter, bool) {
	f := ledger.Filter{Query: strings.TrimSpace(c.Query("q"))}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status == "" || status == "all" {
		return f, true
	}
	f.Status = models.TransactionStatus(status)
	return f, f.Status.Valid()
}

func (h *AdminTransactionHandler) List(c *fiber.Ctx) error {
	f, ok := filterFrom(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Status tidak valid")
	}
	txs, err := h.Ledger.List(c.UserContext(), f)
	if err != nil {
		return serverError(c, err, "Gagal memuat transaksi")
	}
	return c.JSON(fiber.Map{"success": true, "data": txs})
}

func (h *AdminTransactionHandler) Export(c *fiber.Ctx) error {
	f, ok := filterFrom(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Status tidak valid")
	}
	txs, err := h.Ledger.List(c.UserContext(), f)
	if err != nil {
		return serverError(c, err, "Gagal memuat transaksi")
	}

	var buf bytes.Buffer
	if err := ledger.ExportCSV(&buf, txs); err != nil {
		return serverError(c, err, "Gagal membuat file CSV")
	}

	name := fmt.Sprintf("transactions-%s.csv", time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(buf.Bytes())
}

func (h *AdminTransactionHandler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := h.Ledger.Stats(ctx)
	if err != nil {
		return serverError(c, err, "Gagal memuat statistik")
	}
	txs, err := h.Ledger.List(ctx, ledger.Filter{Limit: recentLimit})
	if err != nil {
		return serverError(c, err, "Gagal memuat transaksi")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"stats":  stats,
			"recent": txs,
		},
	})
}
