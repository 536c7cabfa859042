package handlers

import (
	"github.com/gofiber/fiber/v2"

	"printstore/internal/admin"
	applog "printstore/internal/log"
)

// RequireAdmin lets the request through only when this browser has signed in
// to the admin pages.
func RequireAdmin(editor *admin.Editor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := editor.SignedIn(c.UserContext(), sidOf(c))
		if err != nil {
			return err
		}
		if !ok {
			applog.Security(c, "access.denied.admin", nil)
			return c.Redirect("/admin/login")
		}
		c.Locals(localAdmin, true)
		return c.Next()
	}
}
