package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Material keys understood by the storefront. PLA is the default material and is
// always priced at the product's base price.
const (
	MaterialPLA   = "PLA"
	MaterialPETG  = "PETG"
	MaterialABS   = "ABS"
	MaterialOther = "Other"

	DefaultMaterial = MaterialPLA
)

var knownMaterials = map[string]bool{
	MaterialPLA:   true,
	MaterialPETG:  true,
	MaterialABS:   true,
	MaterialOther: true,
}

// KnownMaterial reports whether m is a material key the catalog schema allows.
func KnownMaterial(m string) bool { return knownMaterials[m] }

type MaterialOption struct {
	Markup float64  `json:"markup"`
	Name   string   `json:"name,omitempty"`  // display name, Other only
	Price  *float64 `json:"price,omitempty"` // kept on the PLA entry by the editor
}

type Product struct {
	ID                  string                    `json:"id"`
	Name                string                    `json:"name"`
	Description         string                    `json:"description"`
	Price               float64                   `json:"price"`
	Category            string                    `json:"category"`
	Material            string                    `json:"material,omitempty"`
	Materials           map[string]MaterialOption `json:"materials,omitempty"`
	Color               string                    `json:"color,omitempty"`
	Dimensions          string                    `json:"dimensions,omitempty"`
	Images              []string                  `json:"images"`
	Video               string                    `json:"video,omitempty"`
	STLFile             string                    `json:"stlFile,omitempty"`
	InStock             bool                      `json:"inStock"`
	Featured            bool                      `json:"featured"`
	FulfillmentProvider string                    `json:"fulfillmentProvider,omitempty"`
	CreatedAt           string                    `json:"createdAt,omitempty"` // YYYY-MM-DD
}

// Image returns the primary image or "" when the product has none.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Settings are the store-wide knobs shipped inside the catalog file. TaxRate and
// ShippingFlat are nil when missing or malformed; pricing falls back to defaults.
type Settings struct {
	StoreName         string   `json:"storeName,omitempty"`
	NotificationEmail string   `json:"notificationEmail,omitempty"`
	TaxRate           *float64 `json:"taxRate,omitempty"`
	ShippingFlat      *float64 `json:"shippingFlat,omitempty"`
	PayPalEnabled     bool     `json:"paypalEnabled"`
	PayPalClientID    string   `json:"paypalClientId,omitempty"`
	AdminPassword     string   `json:"adminPassword,omitempty"`
}

// UnmarshalJSON decodes settings leniently: a field with the wrong type is
// dropped instead of failing the whole catalog.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Settings
	str := func(key string, dst *string) {
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, dst)
		}
	}
	num := func(key string) *float64 {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			return &f
		}
		// hand-edited catalogs sometimes quote numbers
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
		return nil
	}
	str("storeName", &out.StoreName)
	str("notificationEmail", &out.NotificationEmail)
	str("paypalClientId", &out.PayPalClientID)
	str("adminPassword", &out.AdminPassword)
	if v, ok := raw["paypalEnabled"]; ok {
		_ = json.Unmarshal(v, &out.PayPalEnabled)
	}
	out.TaxRate = num("taxRate")
	out.ShippingFlat = num("shippingFlat")
	*s = out
	return nil
}

// FulfillmentProvider keeps every attribute of a provider entry so exported
// catalogs round-trip fields the editor does not know about.
type FulfillmentProvider map[string]any

func (f FulfillmentProvider) Active() bool {
	v, _ := f["active"].(bool)
	return v
}

type Catalog struct {
	Products             []Product                      `json:"products"`
	Settings             Settings                       `json:"settings"`
	Categories           []string                       `json:"categories"`
	FulfillmentProviders map[string]FulfillmentProvider `json:"fulfillmentProviders"`
}

// Empty is the catalog used when the resource cannot be loaded.
func Empty() Catalog {
	return Catalog{
		Products:             []Product{},
		Categories:           []string{},
		FulfillmentProviders: map[string]FulfillmentProvider{},
	}
}

func (c Catalog) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ActiveProvider returns the first active fulfillment provider in name order.
func (c Catalog) ActiveProvider() string {
	names := make([]string, 0, len(c.FulfillmentProviders))
	for name := range c.FulfillmentProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.FulfillmentProviders[name].Active() {
			return name
		}
	}
	return ""
}

// Clone returns a deep copy via JSON so edits never alias the loaded catalog.
func (c Catalog) Clone() Catalog {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(c); err != nil {
		return c
	}
	var out Catalog
	if err := json.NewDecoder(&buf).Decode(&out); err != nil {
		return c
	}
	return out
}

// LineKey identifies a cart line: one line per product and material.
type LineKey struct {
	ProductID string
	Material  string
}

// CartItem is the persisted cart line. Price is the snapshot taken when the line
// was first added and is never recomputed from the catalog.
type CartItem struct {
	ProductID string  `json:"id"`
	Quantity  int     `json:"quantity"`
	Material  string  `json:"material"`
	Price     float64 `json:"price"`
}

func (i CartItem) Key() LineKey { return LineKey{ProductID: i.ProductID, Material: i.Material} }

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZIP       string `json:"zip"`
	Phone     string `json:"phone,omitempty"`
}

type OrderLine struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Material string  `json:"material"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	STLFile  string  `json:"stlFile,omitempty"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Order lives for one checkout: it is rendered, handed to the notifier and
// dropped. Nothing stores it server-side.
type Order struct {
	Number        string        `json:"orderNumber"`
	Date          time.Time     `json:"date"`
	PaymentMethod string        `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TransactionID string        `json:"paypalTransactionId,omitempty"`
	Customer      Customer      `json:"customer"`
	Items         []OrderLine   `json:"items"`
	Notes         string        `json:"notes,omitempty"`
	Totals
}
