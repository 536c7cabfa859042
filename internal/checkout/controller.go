package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"printstore/internal/domain"
	"printstore/internal/log"
	"printstore/internal/payment"
	"printstore/internal/pricing"
	"printstore/internal/services"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrNoPaymentMethod  = errors.New("no payment method selected")
	ErrAuthorizationGap = errors.New("authorization does not match this checkout")
)

// PaymentFailedMessage is the only detail a customer sees when payment fails.
const PaymentFailedMessage = "Payment failed. Please try again or contact support."

const CartChangedMessage = "Your cart changed during checkout. Please review your order and pay again."

// Controller runs one request's worth of checkout against a browser's
// Session. The cart and catalog are the ones loaded for the current request.
type Controller struct {
	session  *Session
	cart     *services.Cart
	catalog  domain.Catalog
	methods  *payment.Registry
	notifier Notifier
	now      func() time.Time
}

func NewController(s *Session, cart *services.Cart, cat domain.Catalog, methods *payment.Registry, n Notifier) *Controller {
	if n == nil {
		n = LogNotifier{}
	}
	return &Controller{session: s, cart: cart, catalog: cat, methods: methods, notifier: n, now: time.Now}
}

type Summary struct {
	Lines    []services.Line
	Totals   domain.Totals
	Settings domain.Settings
}

// Summary prices the cart. An empty cart, or one whose products have all left
// the catalog, blocks checkout.
func (c *Controller) Summary() (Summary, error) {
	lines := c.cart.Resolve(c.catalog)
	if len(lines) == 0 {
		return Summary{}, ErrEmptyCart
	}
	return Summary{
		Lines:    lines,
		Totals:   pricing.OrderTotals(services.Items(lines), c.catalog.Settings),
		Settings: c.catalog.Settings,
	}, nil
}

// SelectPayment tears down any mounted widget and mounts the one for kind.
// Selecting the same kind again remounts it.
func (c *Controller) SelectPayment(kind payment.Kind) (payment.Widget, error) {
	m, err := c.methods.Get(kind)
	if err != nil {
		return payment.Widget{}, err
	}
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	s.widget = nil
	w := m.Widget()
	s.widget = &w
	s.selected = kind
	s.auth = payment.Authorization{}
	s.quote = nil
	if kind == payment.KindPayPal {
		s.state = AwaitingPayPalApproval
	} else {
		s.state = AwaitingManualSubmit
	}
	return w, nil
}

func (c *Controller) method() (payment.Method, error) {
	if c.session.selected == "" {
		return nil, ErrNoPaymentMethod
	}
	return c.methods.Get(c.session.selected)
}

func orderLines(lines []services.Line) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLine{
			ID:       l.ProductID,
			Name:     l.Product.Name,
			Material: l.MaterialLabel,
			Price:    l.Price,
			Quantity: l.Quantity,
			STLFile:  l.Product.STLFile,
		}
	}
	return out
}

// CreateOrder validates the form and asks the selected method to create or
// authorize the payment. For PayPal this creates the remote order.
func (c *Controller) CreateOrder(ctx context.Context, f Form) (payment.Authorization, error) {
	const op = "checkout.Controller.CreateOrder"
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := c.Summary()
	if err != nil {
		return payment.Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	m, err := c.method()
	if err != nil {
		return payment.Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	_, _, ferrs := f.Validate()
	lines := orderLines(sum.Lines)
	auth, err := m.CreateOrder(ctx, payment.Request{
		Lines:     lines,
		Totals:    sum.Totals,
		FormValid: len(ferrs) == 0,
	})
	if errors.Is(err, payment.ErrInvalidForm) {
		return payment.Authorization{}, fmt.Errorf("%s: %w", op, &ValidationError{Fields: ferrs})
	}
	if err != nil {
		return payment.Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	s.auth = auth
	s.quote = &quote{lines: lines, totals: sum.Totals}
	return auth, nil
}

// Confirm completes payment and submits the order. The cart must still price
// to what CreateOrder quoted, otherwise nothing is captured and
// ErrAuthorizationGap is returned. A failed confirmation leaves the cart and
// the checkout state untouched.
func (c *Controller) Confirm(ctx context.Context, f Form, auth payment.Authorization) (domain.Order, error) {
	const op = "checkout.Controller.Confirm"
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := c.Summary()
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	customer, notes, ferrs := f.Validate()
	if len(ferrs) > 0 {
		return domain.Order{}, fmt.Errorf("%s: %w", op, &ValidationError{Fields: ferrs})
	}
	m, err := c.method()
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	if auth.Kind != m.Kind() || auth.OrderID != s.auth.OrderID {
		return domain.Order{}, fmt.Errorf("%s: %w", op, ErrAuthorizationGap)
	}
	lines := orderLines(sum.Lines)
	if !s.quote.matches(lines, sum.Totals) {
		return domain.Order{}, fmt.Errorf("%s: %w: cart changed since the order was created", op, ErrAuthorizationGap)
	}

	res, err := m.Confirm(ctx, auth)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w: %w", op, ErrPaymentFailed, err)
	}

	o := domain.Order{
		Date:          c.now().UTC(),
		PaymentMethod: string(m.Kind()),
		PaymentStatus: res.Status,
		TransactionID: res.TransactionID,
		Customer:      customer,
		Items:         lines,
		Notes:         notes,
		Totals:        sum.Totals,
	}
	return c.submitOrder(ctx, o), nil
}

// submitOrder numbers the order, confirms it and clears the cart. The order
// number is time based, so two orders in the same millisecond collide. The
// notifier runs in the background; its failures are only logged.
func (c *Controller) submitOrder(ctx context.Context, o domain.Order) domain.Order {
	s := c.session
	o.Number = "ORD-" + strconv.FormatInt(o.Date.UnixMilli(), 10)

	s.state = OrderConfirmed
	s.widget = nil
	s.auth = payment.Authorization{}
	s.quote = nil
	s.last = &o

	if err := c.cart.Clear(ctx); err != nil {
		log.Error(nil, "cart.clear.fail", err, map[string]any{"order_number": o.Number})
	}

	n := c.notifier
	go func(o domain.Order) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.Notify(ctx, o); err != nil {
			log.Warn(nil, "order.notify.fail", err, map[string]any{"order_number": o.Number})
		}
	}(o)
	return o
}
