package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printstore/internal/domain"
)

type fakeAPI struct {
	created    []PurchaseUnit
	createErr  error
	capture    Capture
	captureErr error
	captured   []string
}

func (f *fakeAPI) CreateOrder(_ context.Context, unit PurchaseUnit) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, unit)
	return "PP-ORDER-1", nil
}

func (f *fakeAPI) CaptureOrder(_ context.Context, id string) (Capture, error) {
	f.captured = append(f.captured, id)
	return f.capture, f.captureErr
}

func scenario() ([]domain.OrderLine, domain.Totals) {
	lines := []domain.OrderLine{{ID: "p1", Name: "Dragon", Material: "PETG", Price: 22.000000000000004, Quantity: 2}}
	sub := 44.00000000000001
	tax := sub * 0.08
	return lines, domain.Totals{Subtotal: sub, Shipping: 5.99, Tax: tax, Total: sub + 5.99 + tax}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" PayPal ")
	require.NoError(t, err)
	assert.Equal(t, KindPayPal, k)

	k, err = ParseKind("manual")
	require.NoError(t, err)
	assert.Equal(t, KindManual, k)

	_, err = ParseKind("bitcoin")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Manual{}, NewPayPal(domain.Settings{}, nil))
	assert.Equal(t, []Kind{KindManual, KindPayPal}, r.Kinds())

	m, err := r.Get(KindPayPal)
	require.NoError(t, err)
	assert.Equal(t, KindPayPal, m.Kind())

	_, err = r.Get("cash")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestManual(t *testing.T) {
	ctx := context.Background()
	m := Manual{}
	assert.True(t, m.Widget().Ready)

	_, err := m.CreateOrder(ctx, Request{FormValid: false})
	assert.ErrorIs(t, err, ErrInvalidForm)

	auth, err := m.CreateOrder(ctx, Request{FormValid: true})
	require.NoError(t, err)
	res, err := m.Confirm(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, res.Status)
	assert.Empty(t, res.TransactionID)
}

func TestBuildPurchaseUnitScenario(t *testing.T) {
	lines, tot := scenario()
	unit, err := BuildPurchaseUnit(lines, tot)
	require.NoError(t, err)

	assert.Equal(t, "53.51", unit.Amount.Value)
	assert.Equal(t, "USD", unit.Amount.CurrencyCode)
	require.NotNil(t, unit.Amount.Breakdown)
	assert.Equal(t, "44.00", unit.Amount.Breakdown.ItemTotal.Value)
	assert.Equal(t, "5.99", unit.Amount.Breakdown.Shipping.Value)
	assert.Equal(t, "3.52", unit.Amount.Breakdown.TaxTotal.Value)
	require.Len(t, unit.Items, 1)
	assert.Equal(t, "22.00", unit.Items[0].UnitAmount.Value)
	assert.Equal(t, "2", unit.Items[0].Quantity)
}

func TestBuildPurchaseUnitAbsorbsRoundingIntoTax(t *testing.T) {
	// shipping and tax each round up, the total does not
	tot := domain.Totals{Subtotal: 5.0, Shipping: 5.125, Tax: 0.125, Total: 10.25}
	unit, err := BuildPurchaseUnit(nil, tot)
	require.NoError(t, err)
	b := unit.Amount.Breakdown
	assert.Equal(t, "10.25", unit.Amount.Value)
	assert.Equal(t, "5.13", b.Shipping.Value)
	assert.Equal(t, "0.12", b.TaxTotal.Value)
	assert.Nil(t, unit.Items)
}

func TestBuildPurchaseUnitRejectsMismatch(t *testing.T) {
	tot := domain.Totals{Subtotal: 10, Shipping: 5, Tax: 1, Total: 20}
	_, err := BuildPurchaseUnit(nil, tot)
	assert.ErrorIs(t, err, ErrBreakdownMismatch)
}

func TestBuildPurchaseUnitDropsItemsThatDoNotAddUp(t *testing.T) {
	lines := []domain.OrderLine{{ID: "p1", Name: "Thing", Price: 0.333, Quantity: 3}}
	tot := domain.Totals{Subtotal: 0.999, Shipping: 0, Tax: 0, Total: 0.999}
	unit, err := BuildPurchaseUnit(lines, tot)
	require.NoError(t, err)
	assert.Equal(t, "1.00", unit.Amount.Breakdown.ItemTotal.Value)
	assert.Nil(t, unit.Items, "3 x 0.33 != 1.00")
}

func TestPayPalWidgetNotConfigured(t *testing.T) {
	cases := map[string]*PayPal{
		"disabled":     NewPayPal(domain.Settings{PayPalClientID: "id"}, &fakeAPI{}),
		"no client id": NewPayPal(domain.Settings{PayPalEnabled: true}, &fakeAPI{}),
		"no api":       NewPayPal(domain.Settings{PayPalEnabled: true, PayPalClientID: "id"}, nil),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			w := p.Widget()
			assert.False(t, w.Ready)
			assert.Equal(t, NotConfiguredMessage, w.Err)

			_, err := p.CreateOrder(context.Background(), Request{FormValid: true})
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestPayPalCreateAndConfirm(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{capture: Capture{OrderID: "PP-ORDER-1", Status: StatusCompleted, CaptureID: "CAP-9"}}
	p := NewPayPal(domain.Settings{PayPalEnabled: true, PayPalClientID: "client"}, api)
	assert.Equal(t, "client", p.Widget().ClientID)

	lines, tot := scenario()
	_, err := p.CreateOrder(ctx, Request{Lines: lines, Totals: tot, FormValid: false})
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Empty(t, api.created, "no request is issued for an invalid form")

	auth, err := p.CreateOrder(ctx, Request{Lines: lines, Totals: tot, FormValid: true})
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-1", auth.OrderID)
	require.Len(t, api.created, 1)

	res, err := p.Confirm(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, res.Status)
	assert.Equal(t, "CAP-9", res.TransactionID)
}

func TestPayPalConfirmFailures(t *testing.T) {
	ctx := context.Background()
	settings := domain.Settings{PayPalEnabled: true, PayPalClientID: "client"}
	auth := Authorization{Kind: KindPayPal, OrderID: "PP-ORDER-1"}

	declined := NewPayPal(settings, &fakeAPI{capture: Capture{Status: "DECLINED"}})
	_, err := declined.Confirm(ctx, auth)
	assert.ErrorIs(t, err, ErrCaptureFailed)

	broken := NewPayPal(settings, &fakeAPI{captureErr: errors.New("boom")})
	_, err = broken.Confirm(ctx, auth)
	assert.ErrorIs(t, err, ErrCaptureFailed)

	_, err = broken.Confirm(ctx, Authorization{Kind: KindPayPal})
	assert.ErrorIs(t, err, ErrCaptureFailed)

	fallback := NewPayPal(settings, &fakeAPI{capture: Capture{OrderID: "PP-ORDER-1", Status: StatusCompleted}})
	res, err := fallback.Confirm(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-1", res.TransactionID)
}
