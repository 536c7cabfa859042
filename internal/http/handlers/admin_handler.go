package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/admin"
	"printstore/internal/domain"
	applog "printstore/internal/log"
	"printstore/internal/pricing"
	"printstore/internal/validate"
)

type AdminHandler struct {
	Editor *admin.Editor
}

func (h *AdminHandler) draft(c *fiber.Ctx) (*admin.Draft, error) {
	return h.Editor.Open(c.UserContext(), sidOf(c), catalogOf(c).Catalog)
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		applog.Error(c, "admin.draft.open.fail", err, nil)
		return err
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Products": d.Catalog().Products,
		"Phase":    string(d.Phase()),
		"Notice":   c.Query("notice"),
	})
}

type productForm struct {
	P           domain.Product
	New         bool
	ImagesText  string
	PETG        bool
	PETGMarkup  float64
	ABS         bool
	ABSMarkup   float64
	Other       bool
	OtherName   string
	OtherMarkup float64
}

func newProductForm(p domain.Product, isNew bool) productForm {
	f := productForm{P: p, New: isNew, ImagesText: strings.Join(p.Images, "\n")}
	if m, ok := p.Materials[domain.MaterialPETG]; ok {
		f.PETG, f.PETGMarkup = true, m.Markup
	}
	if m, ok := p.Materials[domain.MaterialABS]; ok {
		f.ABS, f.ABSMarkup = true, m.Markup
	}
	if m, ok := p.Materials[domain.MaterialOther]; ok {
		f.Other, f.OtherName, f.OtherMarkup = true, m.Name, m.Markup
	}
	return f
}

// GET /admin/products/new
func (h *AdminHandler) NewProduct(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	p := domain.Product{ID: d.NewProductID(), InStock: true}
	return render(c, "admin_product", fiber.Map{"F": newProductForm(p, true), "Categories": d.Catalog().Categories})
}

// GET /admin/products/:id/edit
func (h *AdminHandler) EditProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	p, found := d.Catalog().Product(id)
	if !found {
		return notFound(c, "Product not found")
	}
	return render(c, "admin_product", fiber.Map{"F": newProductForm(p, false), "Categories": d.Catalog().Categories})
}

func markup(c *fiber.Ctx, field string) float64 {
	v, ok := validate.Money(c.FormValue(field))
	if !ok {
		return 0
	}
	return v
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// POST /admin/products
func (h *AdminHandler) SaveProduct(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	in := admin.ProductInput{
		ID:          c.FormValue("id"),
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Color:       c.FormValue("color"),
		Dimensions:  c.FormValue("dimensions"),
		Images:      lines(c.FormValue("images")),
		Video:       c.FormValue("video"),
		STLFile:     c.FormValue("stlFile"),
		InStock:     c.FormValue("inStock") == "on",
		Featured:    c.FormValue("featured") == "on",
		PETG:        c.FormValue("materialPETG") == "on",
		PETGMarkup:  markup(c, "petgMarkup"),
		ABS:         c.FormValue("materialABS") == "on",
		ABSMarkup:   markup(c, "absMarkup"),
		Other:       c.FormValue("materialOther") == "on",
		OtherName:   c.FormValue("otherMaterial"),
		OtherMarkup: markup(c, "otherMarkup"),
	}
	price, ok := validate.Money(c.FormValue("price"))
	if !ok {
		price = -1
	}
	in.Price = price

	p, err := d.SaveProduct(c.UserContext(), in)
	if errors.Is(err, admin.ErrInvalidProduct) {
		applog.Security(c, "validation.fail", map[string]any{"field": "product"})
		_, existed := d.Catalog().Product(strings.TrimSpace(in.ID))
		form := newProductForm(domain.Product{
			ID: in.ID, Name: in.Name, Description: in.Description, Category: in.Category,
			Color: in.Color, Dimensions: in.Dimensions, Images: in.Images, Video: in.Video,
			STLFile: in.STLFile, InStock: in.InStock, Featured: in.Featured,
		}, !existed)
		form.PETG, form.PETGMarkup = in.PETG, in.PETGMarkup
		form.ABS, form.ABSMarkup = in.ABS, in.ABSMarkup
		form.Other, form.OtherName, form.OtherMarkup = in.Other, in.OtherName, in.OtherMarkup
		c.Status(fiber.StatusBadRequest)
		return render(c, "admin_product", fiber.Map{
			"F": form, "Categories": d.Catalog().Categories,
			"Err": "Check the product details: a name is required and prices and markups cannot be negative.",
		})
	}
	if err != nil {
		applog.Error(c, "admin.product.save.fail", err, nil)
		return err
	}
	applog.Audit(c, "admin.product.save", map[string]any{"product_id": p.ID})
	return c.Redirect("/admin?notice=saved", fiber.StatusSeeOther)
}

// POST /admin/products/:id/delete
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	err = d.DeleteProduct(c.UserContext(), id)
	if errors.Is(err, admin.ErrProductNotFound) {
		return notFound(c, "Product not found")
	}
	if err != nil {
		applog.Error(c, "admin.product.delete.fail", err, map[string]any{"product_id": id})
		return err
	}
	applog.Audit(c, "admin.product.delete", map[string]any{"product_id": id})
	return c.Redirect("/admin?notice=deleted", fiber.StatusSeeOther)
}

type settingsForm struct {
	S          domain.Settings
	TaxPercent float64
	Shipping   float64
	Providers  []string
	Active     string
}

func newSettingsForm(cat domain.Catalog) settingsForm {
	f := settingsForm{
		S:          cat.Settings,
		TaxPercent: pricing.Round2(pricing.TaxRate(cat.Settings) * 100),
		Shipping:   pricing.ShippingFlat(cat.Settings),
		Active:     cat.ActiveProvider(),
	}
	for name := range cat.FulfillmentProviders {
		f.Providers = append(f.Providers, name)
	}
	sort.Strings(f.Providers)
	return f
}

// GET /admin/settings
func (h *AdminHandler) Settings(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	return render(c, "admin_settings", fiber.Map{"F": newSettingsForm(d.Catalog()), "Notice": c.Query("notice")})
}

// POST /admin/settings
func (h *AdminHandler) SaveSettings(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	tax, okTax := validate.Money(c.FormValue("taxRate"))
	ship, okShip := validate.Money(c.FormValue("shippingFlat"))
	in := admin.SettingsInput{
		StoreName:         c.FormValue("storeName"),
		NotificationEmail: c.FormValue("notificationEmail"),
		TaxPercent:        tax,
		ShippingFlat:      ship,
		PayPalEnabled:     c.FormValue("paypalEnabled") == "on",
		PayPalClientID:    c.FormValue("paypalClientId"),
		NewPassphrase:     c.FormValue("adminPassword"),
		Provider:          c.FormValue("fulfillmentProvider"),
	}
	if !okTax {
		in.TaxPercent = -1
	}
	if !okShip {
		in.ShippingFlat = -1
	}
	err = d.UpdateSettings(c.UserContext(), in)
	if errors.Is(err, admin.ErrInvalidSettings) || errors.Is(err, admin.ErrUnknownProvider) {
		applog.Security(c, "validation.fail", map[string]any{"field": "settings"})
		c.Status(fiber.StatusBadRequest)
		return render(c, "admin_settings", fiber.Map{
			"F":   newSettingsForm(d.Catalog()),
			"Err": "Settings were not saved: " + strings.TrimPrefix(err.Error(), "admin.Draft.UpdateSettings: "),
		})
	}
	if err != nil {
		applog.Error(c, "admin.settings.save.fail", err, nil)
		return err
	}
	applog.Audit(c, "admin.settings.save", map[string]any{
		"paypal_enabled":    in.PayPalEnabled,
		"password_changed":  strings.TrimSpace(in.NewPassphrase) != "",
		"active_provider":   d.Catalog().ActiveProvider(),
		"tax_rate_percent":  in.TaxPercent,
		"shipping_flat_fee": in.ShippingFlat,
	})
	return c.Redirect("/admin/settings?notice=saved", fiber.StatusSeeOther)
}

// GET /admin/export downloads the edited catalog as products.json.
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	art, err := d.Export(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.export.fail", err, nil)
		return err
	}
	applog.Audit(c, "admin.export", map[string]any{"products": len(d.Catalog().Products), "bytes": len(art.Data)})
	c.Attachment(art.Name)
	return c.Send(art.Data)
}

// POST /admin/discard throws away unexported edits.
func (h *AdminHandler) Discard(c *fiber.Ctx) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	if err := d.Discard(c.UserContext(), catalogOf(c).Catalog); err != nil {
		applog.Error(c, "admin.discard.fail", err, nil)
		return err
	}
	applog.Audit(c, "admin.discard", nil)
	return c.Redirect("/admin?notice=discarded", fiber.StatusSeeOther)
}
