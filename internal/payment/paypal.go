package payment

import (
	"context"
	"fmt"

	"printstore/internal/domain"
)

// API is the part of the PayPal Orders API the storefront uses.
type API interface {
	CreateOrder(ctx context.Context, unit PurchaseUnit) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)
}

// Capture summarizes a capture response. CaptureID is the id of the first
// capture in the first purchase unit, when present.
type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
}

const StatusCompleted = "COMPLETED"

type PayPal struct {
	enabled  bool
	clientID string
	api      API
}

// NewPayPal configures PayPal from store settings. api may be nil when the
// server has no credentials; the widget then reports itself unavailable.
func NewPayPal(s domain.Settings, api API) *PayPal {
	return &PayPal{enabled: s.PayPalEnabled, clientID: s.PayPalClientID, api: api}
}

func (p *PayPal) Kind() Kind { return KindPayPal }

func (p *PayPal) ready() bool { return p.enabled && p.clientID != "" && p.api != nil }

func (p *PayPal) Widget() Widget {
	if !p.ready() {
		return Widget{Kind: KindPayPal, Err: NotConfiguredMessage}
	}
	return Widget{Kind: KindPayPal, Ready: true, ClientID: p.clientID}
}

func (p *PayPal) CreateOrder(ctx context.Context, req Request) (Authorization, error) {
	const op = "payment.PayPal.CreateOrder"
	if !p.ready() {
		return Authorization{}, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	if !req.FormValid {
		return Authorization{}, fmt.Errorf("%s: %w", op, ErrInvalidForm)
	}
	unit, err := BuildPurchaseUnit(req.Lines, req.Totals)
	if err != nil {
		return Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	id, err := p.api.CreateOrder(ctx, unit)
	if err != nil {
		return Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	return Authorization{Kind: KindPayPal, OrderID: id}, nil
}

// Confirm captures the approved order. Only a COMPLETED capture counts as paid.
func (p *PayPal) Confirm(ctx context.Context, auth Authorization) (Result, error) {
	const op = "payment.PayPal.Confirm"
	if !p.ready() {
		return Result{}, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	if auth.OrderID == "" {
		return Result{}, fmt.Errorf("%s: %w: missing order id", op, ErrCaptureFailed)
	}
	c, err := p.api.CaptureOrder(ctx, auth.OrderID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrCaptureFailed, err)
	}
	if c.Status != StatusCompleted {
		return Result{}, fmt.Errorf("%s: %w: status %s", op, ErrCaptureFailed, c.Status)
	}
	txn := c.CaptureID
	if txn == "" {
		txn = c.OrderID
	}
	if txn == "" {
		txn = auth.OrderID
	}
	return Result{Status: domain.PaymentPaid, TransactionID: txn}, nil
}
