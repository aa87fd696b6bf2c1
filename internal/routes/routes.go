package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/config"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/lifecycle"
	"github.com/earnmaster/engine/internal/middleware"
	"github.com/earnmaster/engine/internal/notification"
	"github.com/earnmaster/engine/internal/referral"
	"github.com/earnmaster/engine/internal/request"
	"github.com/earnmaster/engine/internal/settings"
	"github.com/earnmaster/engine/internal/task"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Services exposes long-lived components that outlive request handling,
// so the caller can drive them from schedulers.
type Services struct {
	Supervisor *lifecycle.Supervisor
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	dayLocation, err := time.LoadLocation(d.Cfg.TaskDayTimezone)
	if err != nil {
		return Services{}, fmt.Errorf("invalid TASK_DAY_TIMEZONE %q: %w", d.Cfg.TaskDayTimezone, err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores: Postgres when configured, in-memory fallbacks in dev.
	var accountStore account.Store
	var entryStore ledger.EntryStore
	var requestStore request.Store
	var taskCatalog task.Catalog
	var completionStore task.CompletionStore
	if d.DB != nil {
		accountStore = account.NewPostgresStore(d.DB)
		entryStore = ledger.NewPostgresEntryStore(d.DB)
		requestStore = request.NewPostgresStore(d.DB)
		taskCatalog = task.NewPostgresCatalog(d.DB)
		completionStore = task.NewPostgresCompletionStore(d.DB)
	} else {
		accountStore = account.NewMemoryStore()
		entryStore = ledger.NewMemoryEntryStore()
		requestStore = request.NewMemoryStore()
		taskCatalog = task.NewMemoryCatalog()
		completionStore = task.NewMemoryCompletionStore()
	}

	var settingsSource settings.Source
	if d.Cache != nil {
		settingsSource = settings.NewRedisSource(d.Cache)
	} else {
		settingsSource = settings.NewMemorySource()
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	accountSvc := account.NewService(accountStore)
	ledgerSvc := ledger.NewService(accountStore, entryStore, d.Logger)
	referralSvc := referral.NewService(accountStore, ledgerSvc, settingsSource, d.Logger)
	requestSvc := request.NewService(requestStore, accountStore, ledgerSvc, settingsSource, referralSvc, notifier, d.Logger)
	gate := task.NewGate(taskCatalog, completionStore, accountStore, ledgerSvc, settingsSource, dayLocation, notifier, d.Logger)
	supervisor := lifecycle.NewSupervisor(accountStore, d.Cfg.DeletionGrace, notifier, d.Logger)

	accountHandler := account.NewHandler(accountSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc, settingsSource)
	referralHandler := referral.NewHandler(referralSvc)
	requestHandler := request.NewHandler(requestSvc)
	taskHandler := task.NewHandler(taskCatalog, gate)
	lifecycleHandler := lifecycle.NewHandler(supervisor)
	settingsHandler := settings.NewHandler(settingsSource)

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

	// All business routes require a resolved principal.
	protected := api.Group("", middleware.Principal())
	protected.Use(middleware.MutationRateLimit(d.Cache, 30))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterAccountRoutes(protected, accountHandler)
	RegisterLedgerRoutes(protected, ledgerHandler)
	RegisterReferralRoutes(protected, referralHandler)
	RegisterRequestRoutes(protected, requestHandler)
	RegisterTaskRoutes(protected, taskHandler)
	RegisterLifecycleRoutes(protected, lifecycleHandler)

	// Administrative routes
	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(admin, accountHandler, ledgerHandler, requestHandler, taskHandler, lifecycleHandler, settingsHandler)

	return Services{Supervisor: supervisor}, nil
}
