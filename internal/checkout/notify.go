package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/domain"
	"printstore/internal/log"
)

// Notifier forwards a submitted order to whoever fulfils it. Delivery is best
// effort: errors are logged by the caller and never retried.
type Notifier interface {
	Notify(ctx context.Context, o domain.Order) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, o domain.Order) error {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"id": it.ID, "material": it.Material, "quantity": it.Quantity, "stl_file": it.STLFile,
		})
	}
	log.Audit(nil, "order.submitted", map[string]any{
		"order_number":   o.Number,
		"payment_method": o.PaymentMethod,
		"payment_status": o.PaymentStatus,
		"transaction_id": o.TransactionID,
		"email":          o.Customer.Email,
		"items":          items,
		"total":          o.Total,
	})
	return nil
}

// WebhookNotifier POSTs the order as JSON.
type WebhookNotifier struct {
	URL     string
	Timeout time.Duration
}

var ErrWebhookStatus = errors.New("webhook rejected order")

func (w WebhookNotifier) Notify(ctx context.Context, o domain.Order) error {
	const op = "checkout.WebhookNotifier.Notify"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a := fiber.Post(w.URL).JSON(o)
	if w.Timeout > 0 {
		a.Timeout(w.Timeout)
	}
	code, _, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("%s: %w: status %d", op, ErrWebhookStatus, code)
	}
	return nil
}

// MultiNotifier notifies every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, o domain.Order) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
