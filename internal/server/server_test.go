package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		AppName:     "vaultpay-test",
		AppEnv:      "development",
		Port:        "0",
		LedgerScale: 2,
	}
	srv, err := New(cfg, nil, nil, logging.Discard())
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func doJSONList(t *testing.T, srv *Server, path string) (int, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded []map[string]any
	if len(raw) > 0 && raw[0] == '[' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func register(t *testing.T, srv *Server, name, email string) {
	t.Helper()
	status, _ := doJSON(t, srv, http.MethodPost, "/api/v1/register", map[string]any{
		"name":     name,
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status)
}

func submit(t *testing.T, srv *Server, body map[string]any) (int, map[string]any) {
	t.Helper()
	return doJSON(t, srv, http.MethodPost, "/api/v1/transactions", body)
}

func balance(t *testing.T, srv *Server, email string) string {
	t.Helper()
	status, resp := doJSON(t, srv, http.MethodGet, "/api/v1/wallet/balance?email="+email, nil)
	require.Equal(t, http.StatusOK, status)
	return resp["balance"].(string)
}

func TestRegisterAndBalance(t *testing.T) {
	srv := newTestServer(t)

	register(t, srv, "Alice", "alice@example.com")
	require.Equal(t, "0.00", balance(t, srv, "alice@example.com"))

	status, resp := doJSON(t, srv, http.MethodPost, "/api/v1/register", map[string]any{
		"name": "Alice Again", "email": "alice@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Email already registered", resp["error"])

	status, _ = doJSON(t, srv, http.MethodPost, "/api/v1/register", map[string]any{
		"name": "Al", "email": "al@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestDepositWithdrawTransferFlow(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Alice", "alice@example.com")
	register(t, srv, "Bob", "bob@example.com")

	status, resp := submit(t, srv, map[string]any{
		"amount": 500, "type": "deposit", "email": "alice@example.com",
		"bank": "State Bank", "accountNumber": "123456789012", "ifscCode": "SBIN0001",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Transaction successful", resp["message"])

	status, resp = submit(t, srv, map[string]any{
		"amount": 600, "type": "withdraw", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Insufficient funds", resp["error"])

	status, _ = submit(t, srv, map[string]any{
		"amount": "200", "type": "Transfer", "email": "alice@example.com",
		"recipientEmail": "bob@example.com", "description": "rent",
	})
	require.Equal(t, http.StatusOK, status)

	require.Equal(t, "300.00", balance(t, srv, "alice@example.com"))
	require.Equal(t, "200.00", balance(t, srv, "bob@example.com"))
}

func TestSubmitRejections(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Alice", "alice@example.com")
	register(t, srv, "Bob", "bob@example.com")

	cases := []struct {
		name    string
		body    map[string]any
		status  int
		message string
	}{
		{
			name:    "unknown type",
			body:    map[string]any{"amount": 10, "type": "refund", "email": "alice@example.com"},
			status:  http.StatusBadRequest,
			message: "Invalid transaction type",
		},
		{
			name:    "invalid amount outranks unknown type",
			body:    map[string]any{"amount": "abc", "type": "refund", "email": "alice@example.com"},
			status:  http.StatusBadRequest,
			message: "Invalid amount",
		},
		{
			name:    "negative amount",
			body:    map[string]any{"amount": -5, "type": "deposit", "email": "alice@example.com"},
			status:  http.StatusBadRequest,
			message: "Invalid amount",
		},
		{
			name:    "unknown actor",
			body:    map[string]any{"amount": 10, "type": "deposit", "email": "ghost@example.com"},
			status:  http.StatusNotFound,
			message: "user or wallet not found",
		},
		{
			name: "unknown recipient",
			body: map[string]any{
				"amount": 10, "type": "transfer", "email": "alice@example.com",
				"recipientEmail": "ghost@example.com",
			},
			status:  http.StatusNotFound,
			message: "recipient or recipient's wallet not found",
		},
		{
			name:    "missing recipient",
			body:    map[string]any{"amount": 10, "type": "transfer", "email": "alice@example.com"},
			status:  http.StatusBadRequest,
			message: "Recipient email is required for transfers",
		},
		{
			name: "self transfer",
			body: map[string]any{
				"amount": 10, "type": "transfer", "email": "alice@example.com",
				"recipientEmail": "alice@example.com",
			},
			status:  http.StatusBadRequest,
			message: "Cannot transfer to your own wallet",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := submit(t, srv, tc.body)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.message, resp["error"])
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Alice", "alice@example.com")
	register(t, srv, "Bob", "bob@example.com")

	for _, body := range []map[string]any{
		{"amount": 500, "type": "deposit", "email": "alice@example.com", "bank": "State Bank", "accountNumber": "123456789012"},
		{"amount": 100, "type": "withdraw", "email": "alice@example.com"},
		{"amount": 50, "type": "transfer", "email": "alice@example.com", "recipientEmail": "bob@example.com"},
	} {
		status, _ := submit(t, srv, body)
		require.Equal(t, http.StatusOK, status)
	}

	status, view := doJSONList(t, srv, "/api/v1/transactions?email=alice@example.com")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, view, 3)

	// Newest first.
	require.Equal(t, "transfer", view[0]["type"])
	require.Equal(t, "You", view[0]["senderName"])
	require.Equal(t, "Bob", view[0]["recipientName"])
	require.Equal(t, "withdraw", view[1]["type"])
	require.Equal(t, "deposit", view[2]["type"])
	require.Equal(t, "STATE BANK", view[2]["bankName"])
	require.Equal(t, "****9012", view[2]["accountNumber"])
	require.Equal(t, "500.00", view[2]["amount"])

	// Bob sees the incoming transfer.
	status, view = doJSONList(t, srv, "/api/v1/transactions?email=bob@example.com")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, view, 1)
	require.Equal(t, "Alice", view[0]["senderName"])
	require.Equal(t, "You", view[0]["recipientName"])

	status, resp := doJSON(t, srv, http.MethodGet, "/api/v1/transactions?email=ghost@example.com", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "User not found", resp["error"])
}

func TestDirectoryExcludesCaller(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Alice", "alice@example.com")
	register(t, srv, "Bob", "bob@example.com")

	status, users := doJSONList(t, srv, "/api/v1/users?email=alice@example.com")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, users, 1)
	require.Equal(t, "bob@example.com", users[0]["email"])
}

func TestHealthAndPing(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := doJSON(t, srv, http.MethodGet, "/api/v1/ping", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", resp["status"])
	require.NotEmpty(t, resp["request_id"])
}
