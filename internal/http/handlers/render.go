package handlers

import (
	"github.com/gofiber/fiber/v2"

	"printstore/internal/catalog"
	"printstore/internal/services"
)

const defaultStoreName = "3D Print Shop"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if res, ok := c.Locals(localCatalog).(catalog.Result); ok {
		name := res.Catalog.Settings.StoreName
		if name == "" {
			name = defaultStoreName
		}
		data["StoreName"] = name
		data["Degraded"] = res.Degraded
	} else {
		data["StoreName"] = defaultStoreName
	}
	if cart, ok := c.Locals(localCart).(*services.Cart); ok && cart != nil {
		data["CartCount"] = cart.Count()
	}
	if admin, _ := c.Locals(localAdmin).(bool); admin {
		data["Admin"] = true
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		// Fallback: read the CSRF cookie directly if Locals wasn't populated
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	c.Status(fiber.StatusNotFound)
	return render(c, "notfound", fiber.Map{"Message": msg})
}
