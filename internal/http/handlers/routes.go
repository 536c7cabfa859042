package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	"printstore/internal/domain"
	applog "printstore/internal/log"
	"printstore/internal/pricing"
)

// Views builds the template engine with the helpers the pages use.
func Views(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")
	engine.Reload(reload)
	engine.AddFunc("money", pricing.FormatMoney)
	engine.AddFunc("taxPercent", func(s domain.Settings) string {
		return decimal.NewFromFloat(pricing.TaxRate(s)).Shift(2).Round(2).String() + "%"
	})
	engine.AddFunc("asset", assetURL)
	return engine
}

// assetURL maps catalog-relative media paths under /media; absolute paths and
// full URLs pass through.
func assetURL(p string) string {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "://") {
		return p
	}
	return "/media/" + p
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
		code = fe.Code
		msg = fe.Message
	}
	if code >= 500 {
		applog.Error(c, "server.error", err, nil)
	}
	// Avoid leaking internals; best-effort render
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg, "StoreName": defaultStoreName}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// NewApp wires middleware and routes around d.
func NewApp(d *Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Views:        Views(cfg.TemplatesDir, cfg.ReloadTemplates),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New(helmet.Config{
		// the PayPal SDK is loaded cross-origin
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"path": c.Path()})
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusForbidden).JSON(apiError{Error: "Security check failed. Please refresh and try again."})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{
				"Message": "Security check failed. Please refresh and try again.", "StoreName": defaultStoreName,
			})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Static("/static", cfg.StaticDir)
	app.Get("/media/*", media(cfg.MediaDir))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// ---------- Storefront ----------
	store := app.Group("", Storefront(d))
	store.Get("/", d.StoreHandler.Home)
	store.Get("/product/:id", d.StoreHandler.Detail)
	store.Get("/store/products.json", d.StoreHandler.CatalogJSON)

	store.Get("/cart", d.CartHandler.View)
	store.Post("/cart", d.CartHandler.Add)
	store.Post("/cart/update", d.CartHandler.Update)
	store.Post("/cart/remove", d.CartHandler.Remove)

	store.Get("/checkout", d.CheckoutHandler.Page)
	store.Post("/checkout/payment", d.CheckoutHandler.SelectPayment)
	store.Post("/checkout/manual", d.CheckoutHandler.SubmitManual)
	store.Get("/checkout/confirmation", d.CheckoutHandler.Confirmation)

	payLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|paypal"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.paypal.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(apiError{Error: "Too many attempts. Please wait a moment and try again."})
		},
	})
	store.Post("/api/v1/paypal/orders", payLimiter, d.CheckoutHandler.CreatePayPalOrder)
	store.Post("/api/v1/paypal/orders/:id/capture", payLimiter, d.CheckoutHandler.CapturePayPalOrder)

	// ---------- Admin ----------
	store.Get("/admin/login", d.AuthHandler.LoginForm)
	store.Post("/admin/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "admin_login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), d.AuthHandler.Login)
	store.Post("/admin/logout", d.AuthHandler.Logout)

	adm := store.Group("/admin", RequireAdmin(d.Editor))
	adm.Get("/", d.AdminHandler.Dashboard)
	adm.Get("/products/new", d.AdminHandler.NewProduct)
	adm.Get("/products/:id/edit", d.AdminHandler.EditProduct)
	adm.Post("/products", d.AdminHandler.SaveProduct)
	adm.Post("/products/:id/delete", d.AdminHandler.DeleteProduct)
	adm.Get("/settings", d.AdminHandler.Settings)
	adm.Post("/settings", d.AdminHandler.SaveSettings)
	adm.Get("/export", d.AdminHandler.Export)
	adm.Post("/discard", d.AdminHandler.Discard)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}

// media serves product media, refusing anything that could escape dir.
func media(dir string) fiber.Handler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		// Block encoded traversal attempts as well as raw .. or null bytes
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
