// Package pricing computes per-item and per-order money figures. Amounts stay
// float64 at full precision; rounding happens only when rendering.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"printstore/internal/domain"
)

const (
	DefaultShippingFlat = 5.99
	DefaultTaxRate      = 0.08
)

var ErrUnknownMaterial = errors.New("unknown material")

// materialOrder is the order material choices are offered in.
var materialOrder = []string{domain.MaterialPLA, domain.MaterialPETG, domain.MaterialABS, domain.MaterialOther}

// DisplayPrice is the unit price of product in material. The default material
// costs the base price; the others add their markup percentage.
func DisplayPrice(p domain.Product, material string) (float64, error) {
	if material == "" || material == domain.DefaultMaterial {
		return p.Price, nil
	}
	opt, ok := p.Materials[material]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no %q option", ErrUnknownMaterial, p.ID, material)
	}
	return p.Price * (1 + opt.Markup/100), nil
}

// Label is the display name of a material; Other may carry a custom name.
func Label(p domain.Product, material string) string {
	if material == domain.MaterialOther {
		if opt, ok := p.Materials[material]; ok && opt.Name != "" {
			return opt.Name
		}
	}
	if material == "" {
		return domain.DefaultMaterial
	}
	return material
}

type Option struct {
	Material string
	Label    string
	Price    float64
}

// Options lists the materials a product can be bought in, default first.
func Options(p domain.Product) []Option {
	out := []Option{{Material: domain.DefaultMaterial, Label: domain.DefaultMaterial, Price: p.Price}}
	for _, m := range materialOrder[1:] {
		if _, ok := p.Materials[m]; !ok {
			continue
		}
		price, _ := DisplayPrice(p, m)
		out = append(out, Option{Material: m, Label: Label(p, m), Price: price})
	}
	return out
}

// ShippingFlat returns the configured flat shipping fee, or the default when
// it is missing or negative. Zero is a valid fee.
func ShippingFlat(s domain.Settings) float64 {
	if s.ShippingFlat == nil || *s.ShippingFlat < 0 {
		return DefaultShippingFlat
	}
	return *s.ShippingFlat
}

// TaxRate returns the configured rate in [0,1], or the default.
func TaxRate(s domain.Settings) float64 {
	if s.TaxRate == nil || *s.TaxRate < 0 || *s.TaxRate > 1 {
		return DefaultTaxRate
	}
	return *s.TaxRate
}

func Subtotal(items []domain.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// OrderTotals prices a set of lines. Shipping is charged even on an empty set;
// callers block checkout for empty carts before getting here.
func OrderTotals(items []domain.CartItem, s domain.Settings) domain.Totals {
	sub := Subtotal(items)
	ship := ShippingFlat(s)
	tax := sub * TaxRate(s)
	return domain.Totals{Subtotal: sub, Shipping: ship, Tax: tax, Total: sub + ship + tax}
}

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatMoney renders an amount as "$12.34".
func FormatMoney(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}
