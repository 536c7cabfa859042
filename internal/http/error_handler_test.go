package handlers_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"printstore/internal/http/handlers"
)

// friendly error surface, no internal leakage
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := fiber.New(fiber.Config{
		Views:        handlers.Views("../../web/templates", false),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())

	// Route that triggers an internal error
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})

	var status int
	var s string
	entries := captureLogs(t, func() {
		resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
		if err != nil {
			t.Fatalf("test request failed: %v", err)
		}
		status = resp.StatusCode
		body, _ := io.ReadAll(resp.Body)
		s = string(body)
	})
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if !strings.Contains(s, "Something went wrong") {
		t.Fatalf("friendly message missing; body=%s", s)
	}
	if strings.Contains(s, "db timeout") || strings.Contains(s, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", s)
	}
	e, ok := findLog(entries, "server.error")
	if !ok || !strings.Contains(e.Err, "db timeout") {
		t.Fatalf("expected server.error log with cause, got %+v", entries)
	}
}

func TestErrorHandlerKeepsClientErrors(t *testing.T) {
	app := fiber.New(fiber.Config{
		Views:        handlers.Views("../../web/templates", false),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTeapot {
		t.Fatalf("expected 418, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "short and stout") {
		t.Fatalf("client error message should be shown")
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	resp, body := newBrowser(t, app).get("/no/such/page")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Page not found") {
		t.Fatalf("not-found page missing")
	}
}
