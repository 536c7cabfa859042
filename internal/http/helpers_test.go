package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"printstore/internal/catalog"
	"printstore/internal/config"
	"printstore/internal/domain"
	"printstore/internal/http/handlers"
	"printstore/internal/repos"
)

func f64(v float64) *float64 { return &v }

func testCatalog() domain.Catalog {
	return domain.Catalog{
		Products: []domain.Product{
			{
				ID: "dragon", Name: "Articulated Dragon", Description: "Flexible dragon",
				Price: 22, Category: "toys", InStock: true, Featured: true,
				Materials: map[string]domain.MaterialOption{
					"PLA":  {Markup: 0},
					"PETG": {Markup: 15},
				},
				Images: []string{},
			},
			{
				ID: "planter", Name: "Planter Pot", Description: "Self-watering",
				Price: 14, Category: "home", InStock: false, Images: []string{},
			},
		},
		Settings: domain.Settings{
			StoreName:     "Test Prints",
			TaxRate:       f64(0.08),
			ShippingFlat:  f64(5.99),
			AdminPassword: "letmein123",
		},
		Categories: []string{"toys", "home"},
		FulfillmentProviders: map[string]domain.FulfillmentProvider{
			"craftcloud": {"active": true},
			"local":      {"active": false},
		},
	}
}

// writeCatalog stores cat as products.json in a temp dir and returns its path.
func writeCatalog(t *testing.T, cat domain.Catalog) string {
	t.Helper()
	b, err := catalog.Encode(cat)
	if err != nil {
		t.Fatalf("encode catalog: %v", err)
	}
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func testConfig(catalogPath string) config.Config {
	return config.Config{
		DBDSN:         ":memory:",
		CatalogSource: catalogPath,
		TemplatesDir:  "../../web/templates",
		StaticDir:     "../../web/static",
		MediaDir:      "../../web/media",
	}
}

// newTestApp wires the full application around an in-memory store. tweak may
// replace dependencies before the routes are built.
func newTestApp(t *testing.T, cat domain.Catalog, tweak func(*handlers.Deps)) (*fiber.App, *handlers.Deps, repos.KV) {
	t.Helper()
	return newTestAppAt(t, writeCatalog(t, cat), tweak)
}

func newTestAppAt(t *testing.T, catalogPath string, tweak func(*handlers.Deps)) (*fiber.App, *handlers.Deps, repos.KV) {
	t.Helper()
	cfg := testConfig(catalogPath)
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	kv := repos.NewKVRepo(db)

	d := handlers.NewDeps(cfg, kv, catalog.NewLoader(catalog.NewSource(cfg.CatalogSource)))
	if tweak != nil {
		tweak(d)
		d.Rewire()
	}
	return handlers.NewApp(d), d, kv
}

// browser replays cookies between requests the way a real browser would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	for name, val := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: val})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		b.cookies[c.Name] = c.Value
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	return b.do(httptest.NewRequest("GET", path, nil))
}

// post submits form with the current CSRF token, fetching one first if the
// browser has none yet.
func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	if b.cookies["csrf_"] == "" {
		b.get("/")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.cookies["csrf_"])
	return b.do(newFormRequest(path, form))
}

func (b *browser) sid() string { return b.cookies["sid"] }

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	SID    string         `json:"sid"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

// newFormRequest builds a form POST without a CSRF token.
func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
