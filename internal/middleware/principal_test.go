package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestPrincipalRequiresHeader(t *testing.T) {
	app := fiber.New()
	app.Use(Principal())
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestPrincipalSetsLocals(t *testing.T) {
	app := fiber.New()
	app.Use(Principal())
	app.Get("/me", func(c *fiber.Ctx) error {
		id, _ := c.Locals(PrincipalIDKey).(string)
		role, _ := c.Locals(PrincipalRoleKey).(string)
		return c.JSON(fiber.Map{"id": id, "role": role})
	})

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", "Admin")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(Principal())
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", "user")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected %d got %d", fiber.StatusForbidden, resp.StatusCode)
	}

	req2 := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req2.Header.Set("X-User-ID", "u1")
	req2.Header.Set("X-User-Role", "admin")

	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp2.StatusCode)
	}
}
