package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/history"
	"github.com/vaultpay/vaultpay/internal/identity"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/middleware"
	"github.com/vaultpay/vaultpay/internal/notification"
	"github.com/vaultpay/vaultpay/internal/transactions"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgres(d.DB)
	} else {
		store = ledger.NewMemory()
	}

	var identityRepo identity.Repository
	var accounts identity.AccountCreator
	if d.DB != nil {
		pgRepo := identity.NewPostgresRepository(d.DB)
		identityRepo = pgRepo
		accounts = pgRepo
	} else {
		identityRepo = identity.NewMemoryRepository()
		accounts = identity.CompensatingAccounts{Repo: identityRepo, Wallets: store}
	}

	engine := ledger.NewEngine(store, d.Cfg.LedgerScale, d.Logger)
	identitySvc := identity.NewService(identityRepo, accounts)
	projector := history.NewProjector(store, identityRepo, d.Cfg.LedgerScale)
	notifier := notification.NewLoggerNotifier(d.Logger)
	txnHandler := transactions.NewHandler(engine, identitySvc, projector, notifier, d.Cfg.LedgerScale)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identitySvc)
	RegisterWalletRoutes(api, identitySvc, store, d.Cfg.LedgerScale)
	RegisterTransactionRoutes(api, txnHandler)

	return nil
}
