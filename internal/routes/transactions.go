package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/transactions"
)

// RegisterTransactionRoutes wires submission and history.
func RegisterTransactionRoutes(api fiber.Router, h *transactions.Handler) {
	api.Post("/transactions", h.Submit)
	api.Get("/transactions", h.History)
}
