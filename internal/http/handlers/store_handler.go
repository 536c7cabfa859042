package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/catalog"
	"printstore/internal/log"
	"printstore/internal/pricing"
	"printstore/internal/services"
	"printstore/internal/validate"
)

type StoreHandler struct {
	Catalog *services.CatalogService
}

// GET /
func (h *StoreHandler) Home(c *fiber.Ctx) error {
	res := catalogOf(c)
	q := services.ListQuery{
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     validate.Sort(c.Query("sort")),
	}
	var errMsg string
	if raw := c.Query("q"); strings.TrimSpace(raw) != "" {
		s, ok := validate.Q(raw)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			errMsg = "Enter a valid keyword (letters/numbers only)"
		} else {
			q.Q = s
		}
	}
	products := h.Catalog.List(res.Catalog, q)
	return render(c, "home", fiber.Map{
		"Products":   products,
		"Count":      len(products),
		"Categories": h.Catalog.Categories(res.Catalog),
		"Query":      q,
		"Err":        errMsg,
	})
}

// GET /product/:id
func (h *StoreHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, err := h.Catalog.GetProduct(catalogOf(c).Catalog, id)
	if err != nil {
		return notFound(c, "This item is no longer available")
	}
	return render(c, "product", fiber.Map{
		"P":       p,
		"Options": pricing.Options(p),
		"Added":   c.Query("added") == "1",
	})
}

// GET /store/products.json serves the catalog the storefront is running on.
func (h *StoreHandler) CatalogJSON(c *fiber.Ctx) error {
	res := catalogOf(c)
	if res.Degraded {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "catalog unavailable"})
	}
	b, err := catalog.Encode(res.Catalog)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(b)
}
