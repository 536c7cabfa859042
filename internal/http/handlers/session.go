package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"printstore/internal/catalog"
	"printstore/internal/services"
)

const (
	sidCookie    = "sid"
	localSID     = "sid"
	localCatalog = "catalog"
	localCart    = "cart"
	localAdmin   = "admin"
)

// ensureSID returns the browser's sid, issuing a new one when the cookie is
// missing or not a UUID.
func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
	}
	return sid
}

// Storefront identifies the browser, loads the catalog and restores the cart
// for every page request. The catalog is fetched anew each time.
func Storefront(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := ensureSID(c)
		c.Locals(localSID, sid)

		res := d.Loader.Load(c.UserContext())
		c.Locals(localCatalog, res)

		cart, err := d.Carts.Open(c.UserContext(), sid)
		if err != nil {
			return err
		}
		c.Locals(localCart, cart)
		return c.Next()
	}
}

func sidOf(c *fiber.Ctx) string {
	s, _ := c.Locals(localSID).(string)
	return s
}

func catalogOf(c *fiber.Ctx) catalog.Result {
	res, _ := c.Locals(localCatalog).(catalog.Result)
	return res
}

func cartOf(c *fiber.Ctx) *services.Cart {
	cart, _ := c.Locals(localCart).(*services.Cart)
	return cart
}
