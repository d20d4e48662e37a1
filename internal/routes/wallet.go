package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
)

// RegisterWalletRoutes wires the balance lookup endpoint.
func RegisterWalletRoutes(api fiber.Router, svc *identity.Service, store ledger.Reader, scale int32) {
	api.Get("/wallet/balance", func(c *fiber.Ctx) error {
		email := c.Query("email")
		if email == "" {
			return fiber.NewError(http.StatusBadRequest, "email is required")
		}

		user, err := svc.Resolve(c.UserContext(), email)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "User not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
		}

		w, err := store.WalletByUser(c.UserContext(), user.ID)
		if err != nil {
			if errors.Is(err, ledger.ErrActorNotFound) {
				return fiber.NewError(http.StatusNotFound, "User wallet not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"wallet_id": w.ID,
			"balance":   w.Balance.StringFixed(scale),
			"as_of":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
