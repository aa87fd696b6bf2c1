package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/lifecycle"
	"github.com/earnmaster/engine/internal/request"
	"github.com/earnmaster/engine/internal/settings"
	"github.com/earnmaster/engine/internal/task"
)

// RegisterAdminRoutes wires the administrative surface: request review,
// catalog management, balance corrections, restrictions and platform
// settings.
func RegisterAdminRoutes(r fiber.Router,
	accounts *account.Handler,
	led *ledger.Handler,
	requests *request.Handler,
	tasks *task.Handler,
	lc *lifecycle.Handler,
	cfg *settings.Handler) {
	r.Get("/accounts", accounts.ListAll)
	r.Post("/accounts/:accountId/adjust", led.Adjust)
	r.Post("/accounts/:accountId/restrict", lc.Restrict)

	r.Get("/requests", requests.ListPending)
	r.Post("/requests/:requestId/resolve", requests.Resolve)

	r.Post("/tasks", tasks.Create)
	r.Delete("/tasks/:taskId", tasks.Delete)

	r.Get("/settings", cfg.Get)
	r.Put("/settings", cfg.Update)
}
