package payment

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"printstore/internal/domain"
)

const Currency = "USD"

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Breakdown struct {
	ItemTotal Money `json:"item_total"`
	Shipping  Money `json:"shipping"`
	TaxTotal  Money `json:"tax_total"`
}

type Amount struct {
	Money
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}

type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SKU         string `json:"sku,omitempty"`
	UnitAmount  Money  `json:"unit_amount"`
	Quantity    string `json:"quantity"`
}

type PurchaseUnit struct {
	Description string `json:"description,omitempty"`
	Amount      Amount `json:"amount"`
	Items       []Item `json:"items,omitempty"`
}

func money(d decimal.Decimal) Money {
	return Money{CurrencyCode: Currency, Value: d.StringFixed(2)}
}

func cents(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(2) }

// BuildPurchaseUnit converts display totals into the PayPal amount structure.
// Each figure is rounded to cents; when independent rounding leaves the tax a
// cent off, the tax absorbs the difference. Any larger gap is an error, so an
// amount PayPal would reject is never sent. Line items are attached only when
// they add up to the item total exactly.
func BuildPurchaseUnit(lines []domain.OrderLine, t domain.Totals) (PurchaseUnit, error) {
	total := cents(t.Total)
	items := cents(t.Subtotal)
	ship := cents(t.Shipping)
	tax := cents(t.Tax)

	if !items.Add(ship).Add(tax).Equal(total) {
		rest := total.Sub(items).Sub(ship)
		if rest.IsNegative() || rest.Sub(tax).Abs().GreaterThan(decimal.New(1, -2)) {
			return PurchaseUnit{}, fmt.Errorf("%w: %s + %s + %s != %s",
				ErrBreakdownMismatch, items.StringFixed(2), ship.StringFixed(2), tax.StringFixed(2), total.StringFixed(2))
		}
		tax = rest
	}

	unit := PurchaseUnit{
		Description: "Print store order",
		Amount: Amount{
			Money: money(total),
			Breakdown: &Breakdown{
				ItemTotal: money(items),
				Shipping:  money(ship),
				TaxTotal:  money(tax),
			},
		},
	}

	sum := decimal.Zero
	list := make([]Item, 0, len(lines))
	for _, l := range lines {
		unitPrice := cents(l.Price)
		sum = sum.Add(unitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		list = append(list, Item{
			Name:        truncate(l.Name, 127),
			Description: truncate("Material: "+l.Material, 127),
			SKU:         truncate(l.ID, 127),
			UnitAmount:  money(unitPrice),
			Quantity:    strconv.Itoa(l.Quantity),
		})
	}
	if len(list) > 0 && sum.Equal(items) {
		unit.Items = list
	}
	return unit, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
