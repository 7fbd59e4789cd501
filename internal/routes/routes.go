package routes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bankcore/internal/accounts"
	"github.com/congo-pay/bankcore/internal/auth"
	"github.com/congo-pay/bankcore/internal/config"
	"github.com/congo-pay/bankcore/internal/identity"
	"github.com/congo-pay/bankcore/internal/ledger"
	"github.com/congo-pay/bankcore/internal/middleware"
	"github.com/congo-pay/bankcore/internal/notification"
	"github.com/congo-pay/bankcore/internal/password"
	"github.com/congo-pay/bankcore/internal/payments"
)

const (
	loginLimit    = 5
	loginWindow   = 5 * time.Minute
	readLimit     = 15
	transferLimit = 5
	routeWindow   = time.Minute
)

// Deps aggregates shared dependencies required to wire routes. Identities
// and Ledger override the backends derived from DB, mainly for tests.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Logger     *slog.Logger
	AccessLog  io.Writer
	Identities identity.Repository
	Ledger     ledger.Ledger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	accessLog := d.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Output:     accessLog,
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	identityRepo := d.Identities
	if identityRepo == nil {
		if d.DB != nil {
			identityRepo = identity.NewPostgresRepository(d.DB)
		} else {
			identityRepo = identity.NewMemoryRepository()
		}
	}
	ledgerBackend := d.Ledger
	if ledgerBackend == nil {
		if d.DB != nil {
			ledgerBackend = ledger.NewPostgresLedger(d.DB)
		} else {
			ledgerBackend = ledger.NewInMemory()
		}
	}

	tokens, err := auth.NewTokenManager(d.Cfg.Secret, auth.WithTTL(d.Cfg.TokenTTL))
	if err != nil {
		return err
	}
	identitySvc := identity.NewService(identityRepo, password.NewVerifier())
	authSvc := auth.NewService(identitySvc, tokens, password.Floor{Min: d.Cfg.LoginMinDuration})
	accountSvc := accounts.NewService(ledgerBackend)
	paymentSvc := payments.NewService(ledgerBackend, notification.NewLoggerNotifier(d.Logger), d.Logger)

	authHandler := auth.NewHandler(authSvc, !d.Cfg.IsDev(), d.Logger)
	accountHandler := accounts.NewHandler(accountSvc, d.Logger)
	paymentHandler := payments.NewHandler(paymentSvc, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	loginLimiter := middleware.RateLimit(d.Cache, "login", loginLimit, loginWindow, middleware.ByIP, d.Logger)
	RegisterAuthRoutes(api, authHandler, loginLimiter)

	// Protected routes
	protected := api.Group("", middleware.RequireSession(authSvc.Gate(), d.Logger))
	perRoute := func(name string, limit int) fiber.Handler {
		return middleware.RateLimit(d.Cache, name, limit, routeWindow, middleware.ByIdentity, d.Logger)
	}
	protected.Get("/me", perRoute("me", readLimit), authHandler.Me)
	RegisterAccountRoutes(protected, accountHandler, perRoute("accounts", readLimit), perRoute("account_details", transferLimit))
	RegisterPaymentRoutes(protected, paymentHandler,
		perRoute("transfer", transferLimit),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	return nil
}

// ErrorHandler renders every error as {"error": message}. Unexpected errors
// are reported without detail.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Something bad happened"})
}
