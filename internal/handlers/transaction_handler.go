package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
	"github.com/Windi-Fikriyansyah/topup_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/ledger"
)

type TransactionHandler struct {
	Catalog *catalog.Service
	Ledger  *ledger.Service
	Hub     *realtime.Hub
}

func NewTransactionHandler(cat *catalog.Service, led *ledger.Service, hub *realtime.Hub) *TransactionHandler {
	return &TransactionHandler{Catalog: cat, Ledger: led, Hub: hub}
}

type CreateTransactionReq struct {
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id"`
	GameID        string `json:"game_id"`
	ServerID      string `json:"server_id"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
	UserPhone     string `json:"user_phone"`
	PaymentMethod string `json:"payment_method"`
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var req CreateTransactionReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	ctx := c.UserContext()

	product, _, err := h.Catalog.Product(ctx, catalog.UserView, strings.TrimSpace(req.ProductID))
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, fiber.StatusNotFound, "Produk tidak ditemukan")
	}
	if err != nil {
		return serverError(c, err, "Gagal memuat produk")
	}

	name := strings.TrimSpace(req.UserName)
	phone := strings.TrimSpace(req.UserPhone)
	gameID := strings.TrimSpace(req.GameID)
	serverID := strings.TrimSpace(req.ServerID)

	errs := FieldErrors{}
	variant, ok := product.Variant(strings.TrimSpace(req.VariantID))
	if !ok {
		errs.Add("variant_id", "Pilih nominal top up")
	}
	checkGameIDs(product.GameIDConfig, gameID, serverID, errs)
	checkPhone(phone, errs)
	if name == "" {
		errs.Add("user_name", "Mohon isi nama lengkap")
	}
	channel, ok := models.FindPaymentChannel(models.PaymentMethod(req.PaymentMethod))
	if !ok {
		errs.Add("payment_method", "Pilih metode pembayaran")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	trx, err := h.Ledger.Create(ctx, ledger.NewTransaction{
		UserName:      name,
		UserEmail:     strings.TrimSpace(req.UserEmail),
		UserPhone:     phone,
		GameID:        gameID,
		ServerID:      serverID,
		ProductID:     product.ID,
		VariantID:     variant.ID,
		ProductName:   product.Name,
		VariantName:   variant.Amount,
		Amount:        variant.Price + channel.Fee,
		PaymentMethod: channel.Code,
	})
	if err != nil {
		return serverError(c, err, "Gagal membuat transaksi. Silakan coba lagi.")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Transaksi berhasil dibuat",
		"data":    trx,
	})
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	trx, err := h.Ledger.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Transaksi tidak ditemukan")
	}
	if err != nil {
		return serverError(c, err, "Gagal memuat transaksi")
	}
	return c.JSON(fiber.Map{"success": true, "data": trx})
}

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Watch streams status changes of one transaction, starting with its
// current state.
func (h *TransactionHandler) Watch(c *websocket.Conn) {
	id := c.Params("id")
	trx, err := h.Ledger.Get(context.Background(), id)
	if err != nil {
		msg, _ := json.Marshal(fiber.Map{"type": "error", "message": "Transaksi tidak ditemukan"})
		_ = c.WriteMessage(websocket.TextMessage, msg)
		_ = c.Close()
		return
	}

	initial, err := json.Marshal(realtime.StatusMessage{Type: "transaction_status", Transaction: trx})
	if err != nil {
		log.Printf("[http] ws %s: %v", id, err)
		return
	}
	h.Hub.Serve(c, id, initial)
}
