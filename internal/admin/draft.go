package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"printstore/internal/catalog"
	"printstore/internal/domain"
	"printstore/internal/validate"
)

const (
	PlaceholderImage = "images/store/placeholder.svg"
	DefaultProvider  = "craftcloud"
	ExportName       = "products.json"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrUnknownProvider = errors.New("unknown fulfillment provider")
)

// Draft is one owner's working copy of the catalog. Every change is written
// to the buffer before returning and is invisible to other browsers.
type Draft struct {
	editor  *Editor
	key     string
	catalog domain.Catalog
	phase   Phase
}

func (d *Draft) Catalog() domain.Catalog { return d.catalog }
func (d *Draft) Phase() Phase { return d.phase }

func (d *Draft) save(ctx context.Context, phase Phase) error {
	b, err := json.Marshal(buffer{Phase: phase, Catalog: d.catalog})
	if err != nil {
		return err
	}
	if err := d.editor.KV.Set(ctx, d.key, string(b)); err != nil {
		return err
	}
	d.phase = phase
	return nil
}

// NewProductID returns a time-based id for a product being added.
func (d *Draft) NewProductID() string {
	return "product-" + strconv.FormatInt(d.editor.now().UnixMilli(), 10)
}

// ProductInput is the product form. Markups are percentages over the base price.
type ProductInput struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Category    string
	Color       string
	Dimensions  string
	Images      []string
	Video       string
	STLFile     string
	InStock     bool
	Featured    bool

	PETG        bool
	PETGMarkup  float64
	ABS         bool
	ABSMarkup   float64
	Other       bool
	OtherName   string
	OtherMarkup float64
}

func (in ProductInput) materials() map[string]domain.MaterialOption {
	base := in.Price
	m := map[string]domain.MaterialOption{
		domain.MaterialPLA: {Price: &base, Markup: 0},
	}
	if in.PETG {
		m[domain.MaterialPETG] = domain.MaterialOption{Markup: in.PETGMarkup}
	}
	if in.ABS {
		m[domain.MaterialABS] = domain.MaterialOption{Markup: in.ABSMarkup}
	}
	if in.Other {
		name := strings.TrimSpace(in.OtherName)
		if name == "" {
			name = "Custom"
		}
		m[domain.MaterialOther] = domain.MaterialOption{Name: name, Markup: in.OtherMarkup}
	}
	return m
}

// SaveProduct adds a product or replaces the one with the same id. An update
// keeps the original creation date and fulfillment provider.
func (d *Draft) SaveProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	const op = "admin.Draft.SaveProduct"
	name, ok := validate.Text(in.Name, 120)
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %w: name is required", op, ErrInvalidProduct)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = d.NewProductID()
	} else if _, ok := validate.ID(id); !ok {
		return domain.Product{}, fmt.Errorf("%s: %w: bad id %q", op, ErrInvalidProduct, id)
	}
	images := in.Images
	if len(images) == 0 {
		images = []string{PlaceholderImage}
	}

	p := domain.Product{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		Material:    domain.DefaultMaterial,
		Materials:   in.materials(),
		Color:       strings.TrimSpace(in.Color),
		Dimensions:  strings.TrimSpace(in.Dimensions),
		Images:      images,
		Video:       strings.TrimSpace(in.Video),
		STLFile:     strings.TrimSpace(in.STLFile),
		InStock:     in.InStock,
		Featured:    in.Featured,
		CreatedAt:   d.editor.now().Format("2006-01-02"),
	}
	if err := catalog.Validate(p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidProduct, err)
	}

	idx := -1
	for i, existing := range d.catalog.Products {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		prev := d.catalog.Products[idx]
		if prev.CreatedAt != "" {
			p.CreatedAt = prev.CreatedAt
		}
		p.FulfillmentProvider = prev.FulfillmentProvider
		d.catalog.Products[idx] = p
	} else {
		p.FulfillmentProvider = d.catalog.ActiveProvider()
		if p.FulfillmentProvider == "" {
			p.FulfillmentProvider = DefaultProvider
		}
		d.catalog.Products = append(d.catalog.Products, p)
	}
	if err := d.save(ctx, PhaseBuffered); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (d *Draft) DeleteProduct(ctx context.Context, id string) error {
	const op = "admin.Draft.DeleteProduct"
	out := d.catalog.Products[:0:0]
	for _, p := range d.catalog.Products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == len(d.catalog.Products) {
		return fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	d.catalog.Products = out
	if err := d.save(ctx, PhaseBuffered); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SettingsInput is the settings form. TaxPercent is entered as a percentage.
// An empty NewPassphrase keeps the current one.
type SettingsInput struct {
	StoreName         string
	NotificationEmail string
	TaxPercent        float64
	ShippingFlat      float64
	PayPalEnabled     bool
	PayPalClientID    string
	NewPassphrase     string
	Provider          string
}

func (d *Draft) UpdateSettings(ctx context.Context, in SettingsInput) error {
	const op = "admin.Draft.UpdateSettings"
	if in.TaxPercent < 0 || in.TaxPercent > 100 {
		return fmt.Errorf("%s: %w: tax rate must be between 0 and 100", op, ErrInvalidSettings)
	}
	if in.ShippingFlat < 0 {
		return fmt.Errorf("%s: %w: shipping cannot be negative", op, ErrInvalidSettings)
	}
	if in.Provider != "" {
		if _, ok := d.catalog.FulfillmentProviders[in.Provider]; !ok {
			return fmt.Errorf("%s: %w: %q", op, ErrUnknownProvider, in.Provider)
		}
	}
	email := strings.TrimSpace(in.NotificationEmail)
	if email != "" {
		var ok bool
		if email, ok = validate.Email(email); !ok {
			return fmt.Errorf("%s: %w: bad notification email", op, ErrInvalidSettings)
		}
	}

	s := d.catalog.Settings
	s.StoreName = strings.TrimSpace(in.StoreName)
	s.NotificationEmail = email
	tax := in.TaxPercent / 100
	ship := in.ShippingFlat
	s.TaxRate = &tax
	s.ShippingFlat = &ship
	s.PayPalEnabled = in.PayPalEnabled
	s.PayPalClientID = strings.TrimSpace(in.PayPalClientID)
	if pass := strings.TrimSpace(in.NewPassphrase); pass != "" {
		if !validate.Password(pass) {
			return fmt.Errorf("%s: %w: password needs 8+ characters with letters and digits", op, ErrInvalidSettings)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.AdminPassword = string(hash)
	}
	d.catalog.Settings = s

	if in.Provider != "" {
		if err := d.setProvider(in.Provider); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := d.save(ctx, PhaseBuffered); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Draft) setProvider(name string) error {
	if _, ok := d.catalog.FulfillmentProviders[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	for key, fp := range d.catalog.FulfillmentProviders {
		next := domain.FulfillmentProvider{}
		for k, v := range fp {
			next[k] = v
		}
		next["active"] = key == name
		d.catalog.FulfillmentProviders[key] = next
	}
	return nil
}

// SetActiveProvider marks name as the only active fulfillment provider.
func (d *Draft) SetActiveProvider(ctx context.Context, name string) error {
	const op = "admin.Draft.SetActiveProvider"
	if err := d.setProvider(name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := d.save(ctx, PhaseBuffered); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Artifact is a file offered for download.
type Artifact struct {
	Name string
	Data []byte
}

// Export renders the draft as a replacement catalog file and records that
// the current edits have been exported.
func (d *Draft) Export(ctx context.Context) (Artifact, error) {
	const op = "admin.Draft.Export"
	data, err := catalog.Encode(d.catalog)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", op, err)
	}
	if d.phase != PhaseClean {
		if err := d.save(ctx, PhaseExported); err != nil {
			return Artifact{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return Artifact{Name: ExportName, Data: data}, nil
}

// Discard drops the buffer and resets the draft to live.
func (d *Draft) Discard(ctx context.Context, live domain.Catalog) error {
	if err := d.editor.KV.Delete(ctx, d.key); err != nil {
		return fmt.Errorf("admin.Draft.Discard: %w", err)
	}
	d.catalog = live.Clone()
	d.phase = PhaseClean
	return nil
}
