package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"printstore/internal/domain"
	"printstore/internal/services"
)

func TestHomeListsAndFilters(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	resp, body := b.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"Test Prints", "Articulated Dragon", "Planter Pot"} {
		if !strings.Contains(body, want) {
			t.Fatalf("home missing %q", want)
		}
	}
	if b.sid() == "" {
		t.Fatal("sid cookie not issued")
	}

	_, body = b.get("/?category=toys")
	if !strings.Contains(body, "Articulated Dragon") || strings.Contains(body, "Planter Pot") {
		t.Fatalf("category filter not applied; body=%s", body)
	}

	_, body = b.get("/?q=planter")
	if strings.Contains(body, "Articulated Dragon") || !strings.Contains(body, "Planter Pot") {
		t.Fatalf("search not applied")
	}
}

func TestHomeRejectsBadKeyword(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	var body string
	entries := captureLogs(t, func() {
		_, body = b.get("/?q=" + url.QueryEscape("<script>"))
	})
	if !strings.Contains(body, "Enter a valid keyword") {
		t.Fatalf("expected keyword error")
	}
	if _, ok := findLog(entries, "validation.fail"); !ok {
		t.Fatalf("expected validation.fail log, got %+v", entries)
	}
}

func TestProductDetail(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	resp, body := b.get("/product/dragon")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	// PLA at base price, PETG with its 15% markup
	if !strings.Contains(body, "$22.00") || !strings.Contains(body, "$25.30") {
		t.Fatalf("material prices missing; body=%s", body)
	}

	resp, body = b.get("/product/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "no longer available") {
		t.Fatalf("friendly not-found missing")
	}
}

func TestCatalogJSON(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	resp, body := b.get("/store/products.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got domain.Catalog
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Products) != 2 || got.Settings.StoreName != "Test Prints" {
		t.Fatalf("unexpected catalog %+v", got)
	}
}

func TestDegradedCatalog(t *testing.T) {
	app, _, _ := newTestAppAt(t, filepath.Join(t.TempDir(), "missing.json"), nil)
	b := newBrowser(t, app)

	var body string
	var resp *http.Response
	entries := captureLogs(t, func() {
		resp, body = b.get("/")
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("degraded home should still render, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "could not be loaded") {
		t.Fatalf("degraded banner missing")
	}
	if _, ok := findLog(entries, "catalog.load.fail"); !ok {
		t.Fatalf("expected catalog.load.fail log")
	}

	resp, _ = b.get("/store/products.json")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestCartAddUpdateRemove(t *testing.T) {
	app, d, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	resp, _ := b.post("/cart", url.Values{"productId": {"dragon"}, "material": {"PETG"}, "qty": {"2"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after add, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/cart" {
		t.Fatalf("unexpected redirect %q", loc)
	}

	_, body := b.get("/cart")
	if !strings.Contains(body, "Articulated Dragon") || !strings.Contains(body, "$50.60") {
		t.Fatalf("cart line missing; body=%s", body)
	}

	// persisted under the browser's sid
	cart, err := d.Carts.Open(context.Background(), b.sid())
	if err != nil {
		t.Fatalf("open cart: %v", err)
	}
	if cart.Count() != 2 {
		t.Fatalf("expected 2 items, got %d", cart.Count())
	}

	b.post("/cart/update", url.Values{"productId": {"dragon"}, "material": {"PETG"}, "qty": {"5"}})
	cart, _ = d.Carts.Open(context.Background(), b.sid())
	if cart.Count() != 5 {
		t.Fatalf("expected 5 items after update, got %d", cart.Count())
	}

	b.post("/cart/remove", url.Values{"productId": {"dragon"}, "material": {"PETG"}})
	_, body = b.get("/cart")
	if !strings.Contains(body, "Your cart is empty") {
		t.Fatalf("expected empty cart after remove")
	}
}

func TestCartAddRejects(t *testing.T) {
	app, _, _ := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)

	resp, _ := b.post("/cart", url.Values{"productId": {"planter"}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for out of stock, got %d", resp.StatusCode)
	}

	resp, _ = b.post("/cart", url.Values{"productId": {"dragon"}, "material": {"ABS"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for material not offered, got %d", resp.StatusCode)
	}

	resp, _ = b.post("/cart", url.Values{"productId": {"dragon"}, "material": {"Wood"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown material, got %d", resp.StatusCode)
	}

	resp, _ = b.post("/cart", url.Values{"productId": {"../etc"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}

func TestCartSurvivesNewAppInstance(t *testing.T) {
	app, _, kv := newTestApp(t, testCatalog(), nil)
	b := newBrowser(t, app)
	b.post("/cart", url.Values{"productId": {"dragon"}})

	// a fresh service over the same store sees the cart
	cart, err := services.NewCartService(kv).Open(context.Background(), b.sid())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if cart.Count() != 1 {
		t.Fatalf("expected restored cart, got %d items", cart.Count())
	}
}
