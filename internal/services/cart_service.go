package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"printstore/internal/domain"
	"printstore/internal/log"
	"printstore/internal/pricing"
	"printstore/internal/repos"
)

// CartKeyPrefix namespaces persisted carts; the sid follows the colon.
const CartKeyPrefix = "3dnc-cart"

var (
	ErrOutOfStock      = errors.New("product out of stock")
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
)

type CartService struct {
	KV repos.KV
}

func NewCartService(kv repos.KV) *CartService {
	return &CartService{KV: kv}
}

func CartKey(sid string) string { return CartKeyPrefix + ":" + sid }

// Open restores the cart for sid. A missing or unreadable cart opens empty;
// only storage failures are returned.
func (s *CartService) Open(ctx context.Context, sid string) (*Cart, error) {
	const op = "services.CartService.Open"
	c := &Cart{kv: s.KV, key: CartKey(sid), items: []domain.CartItem{}}
	raw, err := s.KV.Get(ctx, c.key)
	if errors.Is(err, repos.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := DecodeCart([]byte(raw))
	if err != nil {
		log.Warn(nil, "cart.restore.fail", err, map[string]any{"key": c.key})
		return c, nil
	}
	c.items = items
	return c, nil
}

// DecodeCart parses a persisted cart. Lines with no id, an unknown material or
// a negative price are dropped; quantities are clamped to at least one and
// duplicate keys merged.
func DecodeCart(data []byte) ([]domain.CartItem, error) {
	var raw []domain.CartItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.CartItem, 0, len(raw))
	index := map[domain.LineKey]int{}
	for _, it := range raw {
		if it.Material == "" {
			it.Material = domain.DefaultMaterial
		}
		if it.ProductID == "" || !domain.KnownMaterial(it.Material) || it.Price < 0 {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		if i, ok := index[it.Key()]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.Key()] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// Cart is one browser's cart. Every mutation writes the whole cart back before
// returning. Two requests for the same sid are not serialized: the last write wins.
type Cart struct {
	kv    repos.KV
	key   string
	items []domain.CartItem
}

func (c *Cart) persist(ctx context.Context) error {
	b, err := json.Marshal(c.items)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, c.key, string(b))
}

func (c *Cart) find(k domain.LineKey) int {
	for i, it := range c.items {
		if it.Key() == k {
			return i
		}
	}
	return -1
}

// AddItem adds quantity of product in material, merging into an existing line
// for the same key. A new line snapshots the current display price.
func (c *Cart) AddItem(ctx context.Context, p domain.Product, quantity int, material string) error {
	const op = "services.Cart.AddItem"
	if p.ID == "" {
		return fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	if !p.InStock {
		return fmt.Errorf("%s: %w", op, ErrOutOfStock)
	}
	if quantity < 1 {
		quantity = 1
	}
	if material == "" {
		material = domain.DefaultMaterial
	}
	price, err := pricing.DisplayPrice(p, material)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if i := c.find(domain.LineKey{ProductID: p.ID, Material: material}); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		c.items = append(c.items, domain.CartItem{ProductID: p.ID, Quantity: quantity, Material: material, Price: price})
	}
	if err := c.persist(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateQuantity sets a line's quantity, floored at one.
func (c *Cart) UpdateQuantity(ctx context.Context, productID, material string, quantity int) error {
	const op = "services.Cart.UpdateQuantity"
	if material == "" {
		material = domain.DefaultMaterial
	}
	i := c.find(domain.LineKey{ProductID: productID, Material: material})
	if i < 0 {
		return fmt.Errorf("%s: %w", op, ErrLineNotFound)
	}
	if quantity < 1 {
		quantity = 1
	}
	c.items[i].Quantity = quantity
	if err := c.persist(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveItem drops the line for the key. Removing a missing line still persists.
func (c *Cart) RemoveItem(ctx context.Context, productID, material string) error {
	const op = "services.Cart.RemoveItem"
	if material == "" {
		material = domain.DefaultMaterial
	}
	if i := c.find(domain.LineKey{ProductID: productID, Material: material}); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	if err := c.persist(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear empties the cart and removes it from storage.
func (c *Cart) Clear(ctx context.Context) error {
	c.items = []domain.CartItem{}
	if err := c.kv.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("services.Cart.Clear: %w", err)
	}
	return nil
}

// List returns a copy of the lines in insertion order.
func (c *Cart) List() []domain.CartItem {
	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total is the sum of snapshot price times quantity, before shipping and tax.
func (c *Cart) Total() float64 { return pricing.Subtotal(c.items) }

// Count is the number of units in the cart, shown on the cart badge.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Empty() bool { return len(c.items) == 0 }

// Line is a cart line joined with its catalog product for rendering.
type Line struct {
	domain.CartItem
	Product       domain.Product
	MaterialLabel string
}

func (l Line) LineTotal() float64 { return l.Price * float64(l.Quantity) }

// Resolve joins lines with the catalog. Lines whose product is no longer in
// the catalog are skipped but stay in storage.
func (c *Cart) Resolve(cat domain.Catalog) []Line {
	out := make([]Line, 0, len(c.items))
	for _, it := range c.items {
		p, ok := cat.Product(it.ProductID)
		if !ok {
			continue
		}
		out = append(out, Line{CartItem: it, Product: p, MaterialLabel: pricing.Label(p, it.Material)})
	}
	return out
}

// Items returns the resolved lines as plain cart items for pricing.
func Items(lines []Line) []domain.CartItem {
	out := make([]domain.CartItem, len(lines))
	for i, l := range lines {
		out[i] = l.CartItem
	}
	return out
}
