package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/checkout"
	"printstore/internal/log"
	"printstore/internal/payment"
	"printstore/internal/validate"
)

type CheckoutHandler struct {
	Sessions *checkout.Sessions
	Notifier checkout.Notifier
	PayPal   func(clientID string) payment.API
}

func (h *CheckoutHandler) controller(c *fiber.Ctx) (*checkout.Controller, *checkout.Session) {
	cat := catalogOf(c).Catalog
	var api payment.API
	if h.PayPal != nil {
		api = h.PayPal(cat.Settings.PayPalClientID)
	}
	methods := payment.NewRegistry(payment.Manual{}, payment.NewPayPal(cat.Settings, api))
	s := h.Sessions.Get(sidOf(c))
	return checkout.NewController(s, cartOf(c), cat, methods, h.Notifier), s
}

func (h *CheckoutHandler) page(c *fiber.Ctx, status int, form checkout.Form, fields checkout.FieldErrors, errMsg string) error {
	ctl, s := h.controller(c)
	sum, err := ctl.Summary()
	if errors.Is(err, checkout.ErrEmptyCart) {
		return render(c, "checkout", fiber.Map{"Empty": true})
	}
	if err != nil {
		return err
	}
	widget, mounted := s.Mounted()
	c.Status(status)
	return render(c, "checkout", fiber.Map{
		"Summary":  sum,
		"Widget":   widget,
		"Mounted":  mounted,
		"Selected": string(s.Selected()),
		"Form":     form,
		"Fields":   fields,
		"Err":      errMsg,
	})
}

// GET /checkout
func (h *CheckoutHandler) Page(c *fiber.Ctx) error {
	return h.page(c, fiber.StatusOK, checkout.Form{}, nil, "")
}

// POST /checkout/payment
func (h *CheckoutHandler) SelectPayment(c *fiber.Ctx) error {
	kind, err := payment.ParseKind(c.FormValue("method"))
	if err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": "method"})
		return c.Status(fiber.StatusBadRequest).SendString("unknown payment method")
	}
	ctl, _ := h.controller(c)
	if _, err := ctl.SelectPayment(kind); err != nil {
		return err
	}
	return c.Redirect("/checkout", fiber.StatusSeeOther)
}

func parseForm(c *fiber.Ctx) checkout.Form {
	var f checkout.Form
	if err := c.BodyParser(&f); err != nil {
		log.Warn(c, "checkout.form.parse", err, nil)
	}
	return f
}

// POST /checkout/manual
func (h *CheckoutHandler) SubmitManual(c *fiber.Ctx) error {
	form := parseForm(c)
	ctl, s := h.controller(c)
	if s.Selected() != payment.KindManual {
		if _, err := ctl.SelectPayment(payment.KindManual); err != nil {
			return err
		}
	}

	auth, err := ctl.CreateOrder(c.UserContext(), form)
	if err == nil {
		o, cerr := ctl.Confirm(c.UserContext(), form, auth)
		if cerr == nil {
			log.Audit(c, "order.submit", map[string]any{
				"order_number": o.Number, "payment_method": o.PaymentMethod, "total": o.Total,
			})
			return c.Redirect("/checkout/confirmation", fiber.StatusSeeOther)
		}
		err = cerr
	}

	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Security(c, "validation.fail", map[string]any{"field": "checkout_form", "fields": verr.Fields})
		return h.page(c, fiber.StatusBadRequest, form, verr.Fields, "Please correct the highlighted fields.")
	case errors.Is(err, checkout.ErrEmptyCart):
		return c.Redirect("/cart", fiber.StatusSeeOther)
	}
	return err
}

type apiError struct {
	Error  string               `json:"error"`
	Fields checkout.FieldErrors `json:"fields,omitempty"`
}

// POST /api/v1/paypal/orders
func (h *CheckoutHandler) CreatePayPalOrder(c *fiber.Ctx) error {
	form := parseForm(c)
	ctl, s := h.controller(c)
	if s.Selected() != payment.KindPayPal {
		return c.Status(fiber.StatusConflict).JSON(apiError{Error: "Select PayPal to pay with PayPal."})
	}

	auth, err := ctl.CreateOrder(c.UserContext(), form)
	if err == nil {
		log.Info(c, "paypal.order.create", map[string]any{"paypal_order_id": auth.OrderID})
		return c.JSON(fiber.Map{"id": auth.OrderID})
	}
	return h.paypalError(c, "paypal.order.create.fail", err)
}

// POST /api/v1/paypal/orders/:id/capture
func (h *CheckoutHandler) CapturePayPalOrder(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "paypal_order_id"})
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: checkout.PaymentFailedMessage})
	}
	form := parseForm(c)
	ctl, _ := h.controller(c)

	o, err := ctl.Confirm(c.UserContext(), form, payment.Authorization{Kind: payment.KindPayPal, OrderID: id})
	if err != nil {
		return h.paypalError(c, "paypal.capture.fail", err)
	}
	log.Audit(c, "order.submit", map[string]any{
		"order_number": o.Number, "payment_method": o.PaymentMethod, "transaction_id": o.TransactionID, "total": o.Total,
	})
	return c.JSON(fiber.Map{"orderNumber": o.Number, "redirect": "/checkout/confirmation"})
}

func (h *CheckoutHandler) paypalError(c *fiber.Ctx, action string, err error) error {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: "Please complete the required fields.", Fields: verr.Fields})
	case errors.Is(err, checkout.ErrEmptyCart):
		return c.Status(fiber.StatusConflict).JSON(apiError{Error: "Your cart is empty."})
	case errors.Is(err, checkout.ErrAuthorizationGap):
		log.Security(c, action, map[string]any{"err": err.Error()})
		return c.Status(fiber.StatusConflict).JSON(apiError{Error: checkout.CartChangedMessage})
	case errors.Is(err, payment.ErrUnavailable):
		log.Warn(c, action, err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(apiError{Error: payment.NotConfiguredMessage})
	case errors.Is(err, checkout.ErrPaymentFailed):
		log.Warn(c, action, err, nil)
		return c.Status(fiber.StatusPaymentRequired).JSON(apiError{Error: checkout.PaymentFailedMessage})
	}
	log.Error(c, action, err, nil)
	return c.Status(fiber.StatusBadGateway).JSON(apiError{Error: checkout.PaymentFailedMessage})
}

// GET /checkout/confirmation
func (h *CheckoutHandler) Confirmation(c *fiber.Ctx) error {
	s := h.Sessions.Get(sidOf(c))
	o, ok := s.LastOrder()
	if !ok {
		return c.Redirect("/")
	}
	return render(c, "confirmation", fiber.Map{
		"Order":    o,
		"Manual":   o.PaymentMethod == string(payment.KindManual),
		"Settings": catalogOf(c).Catalog.Settings,
	})
}
