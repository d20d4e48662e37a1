package transactions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vaultpay/vaultpay/internal/history"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/notification"
)

// Handler exposes the transaction submission and history endpoints.
type Handler struct {
	engine    *ledger.Engine
	ids       *identity.Service
	projector *history.Projector
	notifier  notification.Notifier
	scale     int32
}

// NewHandler constructs a transactions handler. Scale is the number of
// decimal places used when rendering amounts.
func NewHandler(engine *ledger.Engine, ids *identity.Service, projector *history.Projector, notifier notification.Notifier, scale int32) *Handler {
	return &Handler{engine: engine, ids: ids, projector: projector, notifier: notifier, scale: scale}
}

// submitRequest mirrors the public transaction body. Amount accepts a JSON
// number or a numeric string.
type submitRequest struct {
	Amount         any    `json:"amount"`
	Type           string `json:"type"`
	Email          string `json:"email"`
	Bank           string `json:"bank"`
	AccountNumber  string `json:"accountNumber"`
	IFSCCode       string `json:"ifscCode"`
	RecipientEmail string `json:"recipientEmail"`
	Description    string `json:"description"`
}

// Submit validates and applies one balance-mutating operation.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount := amountText(req.Amount)

	kind, err := ledger.ParseKind(req.Type)
	if err != nil {
		// The amount precondition outranks the kind check.
		if err := h.engine.ValidateAmount(amount); err != nil {
			return fiber.NewError(http.StatusBadRequest, "Invalid amount")
		}
		return fiber.NewError(http.StatusBadRequest, "Invalid transaction type")
	}

	actorID := h.resolveUserID(c.UserContext(), req.Email)

	var op ledger.Operation
	var recipient identity.User
	switch kind {
	case ledger.KindDeposit:
		op = ledger.Deposit{UserID: actorID, Amount: amount, Bank: bankDetails(req)}
	case ledger.KindWithdraw:
		op = ledger.Withdraw{UserID: actorID, Amount: amount, Bank: bankDetails(req)}
	case ledger.KindTransfer:
		transfer := ledger.Transfer{
			SenderUserID: actorID,
			Amount:       amount,
			Description:  req.Description,
		}
		if req.RecipientEmail != "" {
			var err error
			recipient, err = h.ids.Resolve(c.UserContext(), req.RecipientEmail)
			if err != nil {
				// Let the engine report the missing side with its own
				// precedence; a fresh id resolves to no wallet.
				transfer.RecipientUserID = uuid.NewString()
			} else {
				transfer.RecipientUserID = recipient.ID
			}
		}
		op = transfer
	}

	res, err := h.engine.Apply(c.UserContext(), op)
	if err != nil {
		return mapEngineError(err)
	}

	if kind == ledger.KindTransfer && h.notifier != nil && recipient.ID != "" {
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipient.ID,
			Body:        fmt.Sprintf("You received a transfer of %s", res.Amount.StringFixed(h.scale)),
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Transaction successful"})
}

// History returns the caller's display-ready transaction view, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}

	user, err := h.ids.Resolve(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "User not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
	}

	view, err := h.projector.HistoryFor(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrActorNotFound) {
			return fiber.NewError(http.StatusNotFound, "User wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.Status(http.StatusOK).JSON(view)
}

// resolveUserID translates the actor email into a user id. Unresolvable
// emails pass through as fresh ids so the engine reports the missing actor
// after its earlier preconditions.
func (h *Handler) resolveUserID(ctx context.Context, email string) string {
	user, err := h.ids.Resolve(ctx, email)
	if err != nil {
		return uuid.NewString()
	}
	return user.ID
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, ledger.ErrInvalidKind):
		return fiber.NewError(http.StatusBadRequest, "Invalid transaction type")
	case errors.Is(err, ledger.ErrMissingRecipient):
		return fiber.NewError(http.StatusBadRequest, "Recipient email is required for transfers")
	case errors.Is(err, ledger.ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, "Cannot transfer to your own wallet")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, ledger.ErrActorNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "Transaction failed")
	}
}

func bankDetails(req submitRequest) *ledger.BankDetails {
	if req.Bank == "" && req.AccountNumber == "" && req.IFSCCode == "" {
		return nil
	}
	return &ledger.BankDetails{
		BankName:      req.Bank,
		AccountNumber: req.AccountNumber,
		IFSCCode:      req.IFSCCode,
	}
}

// amountText normalizes the amount field to the text the engine validates.
func amountText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
