package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/identity"
)

// RegisterIdentityRoutes wires account registration and the recipient
// directory.
func RegisterIdentityRoutes(api fiber.Router, svc *identity.Service) {
	api.Post("/register", func(c *fiber.Ctx) error {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		user, err := svc.Register(c.UserContext(), identity.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			var verr identity.ValidationError
			switch {
			case errors.As(err, &verr):
				return fiber.NewError(http.StatusBadRequest, verr.Error())
			case errors.Is(err, identity.ErrDuplicateEmail):
				return fiber.NewError(http.StatusConflict, "Email already registered")
			default:
				return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
			}
		}

		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		})
	})

	api.Get("/users", func(c *fiber.Ctx) error {
		users, err := svc.Directory(c.UserContext(), c.Query("email"))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
		}

		out := make([]fiber.Map, 0, len(users))
		for _, u := range users {
			out = append(out, fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email})
		}
		return c.Status(http.StatusOK).JSON(out)
	})
}
