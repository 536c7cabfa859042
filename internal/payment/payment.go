// Package payment holds the two ways an order can be paid: manual (pay later,
// no network) and PayPal capture. Both sit behind Method so checkout never
// branches on the provider.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"printstore/internal/domain"
)

type Kind string

const (
	KindManual Kind = "manual"
	KindPayPal Kind = "paypal"
)

var (
	ErrUnknownKind       = errors.New("unknown payment method")
	ErrInvalidForm       = errors.New("checkout form is invalid")
	ErrUnavailable       = errors.New("payment method unavailable")
	ErrBreakdownMismatch = errors.New("amount breakdown does not add up")
	ErrCaptureFailed     = errors.New("payment capture failed")
)

// NotConfiguredMessage is shown in place of the PayPal buttons when the store
// has not been set up for PayPal.
const NotConfiguredMessage = "PayPal is not configured. Please add your PayPal Client ID in the admin settings."

// ParseKind turns the submitted payment choice into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindManual:
		return KindManual, nil
	case KindPayPal:
		return KindPayPal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Label() string {
	if k == KindPayPal {
		return "PayPal"
	}
	return "Manual"
}

// Widget describes what the checkout page mounts for a method. When Ready is
// false Err holds the inline message shown instead.
type Widget struct {
	Kind     Kind
	Ready    bool
	Err      string
	ClientID string
}

type Request struct {
	Lines     []domain.OrderLine
	Totals    domain.Totals
	FormValid bool
}

// Authorization is what CreateOrder hands back; OrderID is set for PayPal.
type Authorization struct {
	Kind    Kind
	OrderID string
}

type Result struct {
	Status        domain.PaymentStatus
	TransactionID string
}

type Method interface {
	Kind() Kind
	Widget() Widget
	CreateOrder(ctx context.Context, req Request) (Authorization, error)
	Confirm(ctx context.Context, auth Authorization) (Result, error)
}

// Manual records the order for payment outside the store.
type Manual struct{}

func (Manual) Kind() Kind { return KindManual }

func (Manual) Widget() Widget { return Widget{Kind: KindManual, Ready: true} }

func (Manual) CreateOrder(_ context.Context, req Request) (Authorization, error) {
	if !req.FormValid {
		return Authorization{}, ErrInvalidForm
	}
	return Authorization{Kind: KindManual}, nil
}

func (Manual) Confirm(_ context.Context, _ Authorization) (Result, error) {
	return Result{Status: domain.PaymentPending}, nil
}

// Registry resolves a Kind to its Method.
type Registry struct {
	methods map[Kind]Method
	order   []Kind
}

func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: map[Kind]Method{}}
	for _, m := range methods {
		if _, dup := r.methods[m.Kind()]; !dup {
			r.order = append(r.order, m.Kind())
		}
		r.methods[m.Kind()] = m
	}
	return r
}

func (r *Registry) Get(k Kind) (Method, error) {
	m, ok := r.methods[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return m, nil
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.order))
	copy(out, r.order)
	return out
}
