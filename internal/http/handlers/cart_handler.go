package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/log"
	"printstore/internal/pricing"
	"printstore/internal/services"
	"printstore/internal/validate"
)

type CartHandler struct{}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	material, ok := validate.Material(c.FormValue("material"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "material"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid material")
	}
	qty := validate.Qty(c.FormValue("qty"))

	p, found := catalogOf(c).Catalog.Product(productID)
	if !found {
		return notFound(c, "This item is no longer available")
	}
	err := cartOf(c).AddItem(c.UserContext(), p, qty, material)
	switch {
	case errors.Is(err, services.ErrOutOfStock):
		return c.Status(fiber.StatusConflict).SendString("This item is out of stock")
	case errors.Is(err, pricing.ErrUnknownMaterial):
		return c.Status(fiber.StatusBadRequest).SendString("That material is not offered for this item")
	case err != nil:
		return err
	}
	log.Info(c, "cart.add", map[string]any{"product_id": productID, "material": material, "qty": qty})
	if c.FormValue("next") == "product" {
		return c.Redirect("/product/" + productID + "?added=1")
	}
	return c.Redirect("/cart")
}

// POST /cart/update
func (h *CartHandler) Update(c *fiber.Ctx) error {
	productID, okID := validate.ID(c.FormValue("productId"))
	material, okMat := validate.Material(c.FormValue("material"))
	if !okID || !okMat {
		log.Security(c, "validation.fail", map[string]any{"field": "cart_line"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid cart line")
	}
	err := cartOf(c).UpdateQuantity(c.UserContext(), productID, material, validate.Qty(c.FormValue("qty")))
	if err != nil && !errors.Is(err, services.ErrLineNotFound) {
		return err
	}
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	productID, okID := validate.ID(c.FormValue("productId"))
	material, okMat := validate.Material(c.FormValue("material"))
	if !okID || !okMat {
		log.Security(c, "validation.fail", map[string]any{"field": "cart_line"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid cart line")
	}
	if err := cartOf(c).RemoveItem(c.UserContext(), productID, material); err != nil {
		return err
	}
	log.Info(c, "cart.remove", map[string]any{"product_id": productID, "material": material})
	return c.Redirect("/cart")
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cart := cartOf(c)
	lines := cart.Resolve(catalogOf(c).Catalog)
	return render(c, "cart", fiber.Map{
		"Lines":    lines,
		"Subtotal": pricing.Subtotal(services.Items(lines)),
		"Empty":    len(lines) == 0,
	})
}
