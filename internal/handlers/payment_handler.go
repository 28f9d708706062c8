package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

type PaymentHandler struct{}

func NewPaymentHandler() *PaymentHandler {
	return &PaymentHandler{}
}

func (h *PaymentHandler) GetChannels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": models.PaymentChannels})
}
