package handlers

import (
	"github.com/gofiber/fiber/v2"

	"printstore/internal/admin"
	"printstore/internal/log"
)

// AuthHandler gates the admin pages behind the store passphrase.
type AuthHandler struct {
	Editor *admin.Editor
}

// GET /admin/login
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "admin_login", fiber.Map{"Err": ""})
}

// POST /admin/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := sidOf(c)
	pass := c.FormValue("password")
	if len(pass) > 128 {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_password_format"})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "admin_login", fiber.Map{"Err": "Incorrect password"})
	}
	if err := h.Editor.Authenticate(catalogOf(c).Catalog, pass); err != nil {
		log.Security(c, "auth.login.fail", nil)
		c.Status(fiber.StatusUnauthorized)
		return render(c, "admin_login", fiber.Map{"Err": "Incorrect password"})
	}
	if err := h.Editor.SignIn(c.UserContext(), sid); err != nil {
		return err
	}
	log.Audit(c, "auth.login.success", nil)
	return c.Redirect("/admin", fiber.StatusSeeOther)
}

// POST /admin/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Editor.SignOut(c.UserContext(), sidOf(c)); err != nil {
		return err
	}
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/", fiber.StatusSeeOther)
}
