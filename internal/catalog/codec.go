package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"printstore/internal/domain"
)

var (
	ErrNegativePrice   = errors.New("negative price")
	ErrNegativeMarkup  = errors.New("negative markup")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrMissingID       = errors.New("missing product id")
	ErrDuplicateID     = errors.New("duplicate product id")
)

// Rejection records a product dropped while decoding.
type Rejection struct {
	Index int
	ID    string
	Err   error
}

type document struct {
	Products             []json.RawMessage                     `json:"products"`
	Settings             json.RawMessage                       `json:"settings"`
	Categories           []string                              `json:"categories"`
	FulfillmentProviders map[string]domain.FulfillmentProvider `json:"fulfillmentProviders"`
}

// Decode parses a catalog document. Products that fail validation are skipped
// and reported; the first product wins on duplicate ids. Malformed settings
// decode to zero settings so pricing falls back to its defaults.
func Decode(data []byte) (domain.Catalog, []Rejection, error) {
	const op = "catalog.Decode"
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Empty(), nil, fmt.Errorf("%s: %w", op, err)
	}

	out := domain.Empty()
	var rejected []Rejection
	seen := map[string]bool{}
	for i, raw := range doc.Products {
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			rejected = append(rejected, Rejection{Index: i, Err: err})
			continue
		}
		if err := Validate(p); err != nil {
			rejected = append(rejected, Rejection{Index: i, ID: p.ID, Err: err})
			continue
		}
		if seen[p.ID] {
			rejected = append(rejected, Rejection{Index: i, ID: p.ID, Err: ErrDuplicateID})
			continue
		}
		seen[p.ID] = true
		if p.Images == nil {
			p.Images = []string{}
		}
		out.Products = append(out.Products, p)
	}

	if len(doc.Settings) > 0 {
		_ = json.Unmarshal(doc.Settings, &out.Settings)
	}
	if doc.Categories != nil {
		out.Categories = doc.Categories
	}
	if doc.FulfillmentProviders != nil {
		out.FulfillmentProviders = doc.FulfillmentProviders
	}
	return out, rejected, nil
}

// Validate checks the invariants a product must hold to enter the catalog.
func Validate(p domain.Product) error {
	if p.ID == "" {
		return ErrMissingID
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	for key, opt := range p.Materials {
		if !domain.KnownMaterial(key) {
			return fmt.Errorf("%w: %q", ErrUnknownMaterial, key)
		}
		if opt.Markup < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeMarkup, key)
		}
	}
	return nil
}

// Encode renders the catalog as indented JSON in the on-disk schema.
func Encode(c domain.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("catalog.Encode: %w", err)
	}
	return buf.Bytes(), nil
}
