package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/vaultpay/vaultpay/internal/history"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/logging"
	"github.com/vaultpay/vaultpay/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	return nil
}

func newTestHandler(t *testing.T) (*fiber.App, *identity.Service, *recordingNotifier) {
	t.Helper()
	store := ledger.NewMemory()
	repo := identity.NewMemoryRepository()
	svc := identity.NewService(repo, identity.CompensatingAccounts{Repo: repo, Wallets: store})
	engine := ledger.NewEngine(store, 2, logging.Discard())
	projector := history.NewProjector(store, repo, 2)
	notifier := &recordingNotifier{}

	h := NewHandler(engine, svc, projector, notifier, 2)
	app := fiber.New()
	app.Post("/transactions", h.Submit)
	app.Get("/transactions", h.History)
	return app, svc, notifier
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestTransferNotifiesRecipientWithFixedScaleAmount(t *testing.T) {
	app, svc, notifier := newTestHandler(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, identity.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correcthorse"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, identity.RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "correcthorse"})
	require.NoError(t, err)

	status := postJSON(t, app, "/transactions", map[string]any{
		"amount": 500, "type": "deposit", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, status)

	// The caller sent a bare "200"; the notification renders it at the
	// configured scale, same as the history view.
	status = postJSON(t, app, "/transactions", map[string]any{
		"amount": 200, "type": "transfer", "email": "alice@example.com",
		"recipientEmail": "bob@example.com",
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	require.Equal(t, notification.KindTransferReceived, msg.Kind)
	require.Equal(t, bob.ID, msg.Destination)
	require.Contains(t, msg.Body, "200.00")

	// Deposits and rejected operations never notify.
	status = postJSON(t, app, "/transactions", map[string]any{
		"amount": 9999, "type": "transfer", "email": "alice@example.com",
		"recipientEmail": "bob@example.com",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Len(t, notifier.messages, 1)
}
