package catalog

import (
	"bytes"
	"context"
	stdlog "log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "products": [
    {"id":"p1","name":"Dragon","description":"Articulated dragon","price":20,"category":"Toys",
     "images":["img/dragon.jpg"],"inStock":true,"featured":true,
     "materials":{"PLA":{"markup":0},"PETG":{"markup":10},"Other":{"markup":25,"name":"Silk PLA"}}},
    {"id":"p2","name":"Vase","price":-1,"images":[]},
    {"id":"p3","name":"Hook","price":4,"materials":{"Nylon":{"markup":5}}},
    {"id":"p1","name":"Dragon copy","price":1},
    {"name":"No id","price":3},
    {"id":"p4","name":"Planter","price":12.5,"inStock":false}
  ],
  "settings": {"storeName":"Print Shop","taxRate":"0.07","shippingFlat":"free","paypalEnabled":true,"paypalClientId":"abc"},
  "categories": ["Toys","Home"],
  "fulfillmentProviders": {"local":{"active":true,"name":"Local"},"remote":{"active":false}}
}`

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stdlog.SetOutput(&buf)
	t.Cleanup(func() { stdlog.SetOutput(os.Stderr) })
	return &buf
}

func TestDecodeRejectsInvalidProducts(t *testing.T) {
	c, rejected, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)

	ids := []string{}
	for _, p := range c.Products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p4"}, ids)
	assert.Equal(t, "Dragon", c.Products[0].Name, "first product wins on duplicate id")
	require.Len(t, rejected, 4)
	assert.ErrorIs(t, rejected[0].Err, ErrNegativePrice)
	assert.ErrorIs(t, rejected[1].Err, ErrUnknownMaterial)
	assert.ErrorIs(t, rejected[2].Err, ErrDuplicateID)
	assert.ErrorIs(t, rejected[3].Err, ErrMissingID)
	assert.NotNil(t, c.Products[1].Images)
}

func TestDecodeSettingsLeniently(t *testing.T) {
	c, _, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)

	require.NotNil(t, c.Settings.TaxRate)
	assert.InDelta(t, 0.07, *c.Settings.TaxRate, 1e-9)
	assert.Nil(t, c.Settings.ShippingFlat, "unparsable shipping is treated as missing")
	assert.True(t, c.Settings.PayPalEnabled)
	assert.Equal(t, "local", c.ActiveProvider())
}

func TestDecodeMalformed(t *testing.T) {
	c, _, err := Decode([]byte(`{"products": [`))
	assert.Error(t, err)
	assert.Empty(t, c.Products)
}

func TestEncodeRoundTripsProviders(t *testing.T) {
	c, _, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)
	out, err := Encode(c)
	require.NoError(t, err)

	back, rejected, err := Decode(out)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, c.Products, back.Products)
	assert.Equal(t, "Local", back.FulfillmentProviders["local"]["name"])
	assert.Contains(t, string(out), "\n  \"products\"")
}

func TestLoaderFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	res := NewLoader(NewSource(path)).Load(context.Background())
	assert.False(t, res.Degraded)
	assert.Len(t, res.Catalog.Products, 2)
}

func TestLoaderDegradesOnMissingFile(t *testing.T) {
	buf := captureLog(t)
	res := NewLoader(NewSource(filepath.Join(t.TempDir(), "nope.json"))).Load(context.Background())

	assert.True(t, res.Degraded)
	assert.Error(t, res.Err)
	assert.Empty(t, res.Catalog.Products)
	assert.NotNil(t, res.Catalog.FulfillmentProviders)
	assert.Contains(t, buf.String(), `"action":"catalog.load.fail"`)
}

func TestLoaderHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/store/products.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	src := NewSource(srv.URL + "/store/products.json")
	_, isHTTP := src.(HTTPSource)
	require.True(t, isHTTP)

	res := NewLoader(src).Load(context.Background())
	assert.False(t, res.Degraded)
	assert.Len(t, res.Catalog.Products, 2)

	_ = captureLog(t)
	res = NewLoader(NewSource(srv.URL + "/missing.json")).Load(context.Background())
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.Err, ErrStatus)
}
