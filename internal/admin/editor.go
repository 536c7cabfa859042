// Package admin edits the catalog on behalf of the store owner. Edits land in
// a per-browser buffer and only reach customers once the owner exports the
// buffer and replaces the catalog file by hand.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"printstore/internal/domain"
	"printstore/internal/log"
	"printstore/internal/repos"
)

const (
	BufferKeyPrefix = "3dnc-store-data"
	SignInKeyPrefix = "admin-logged-in"
)

var ErrBadPassphrase = errors.New("incorrect password")

type Editor struct {
	KV  repos.KV
	now func() time.Time
}

func NewEditor(kv repos.KV) *Editor {
	return &Editor{KV: kv, now: time.Now}
}

func bufferKey(sid string) string { return BufferKeyPrefix + ":" + sid }
func signInKey(sid string) string { return SignInKeyPrefix + ":" + sid }

// Authenticate checks passphrase against the catalog's admin password, which
// is either a bcrypt hash or plain text from a hand-written catalog. A catalog
// without a password admits nobody.
func (e *Editor) Authenticate(cat domain.Catalog, passphrase string) error {
	want := cat.Settings.AdminPassword
	if want == "" || passphrase == "" {
		return ErrBadPassphrase
	}
	if strings.HasPrefix(want, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(want), []byte(passphrase)) != nil {
			return ErrBadPassphrase
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(passphrase)) != 1 {
		return ErrBadPassphrase
	}
	return nil
}

func (e *Editor) SignIn(ctx context.Context, sid string) error {
	return e.KV.Set(ctx, signInKey(sid), "true")
}

func (e *Editor) SignOut(ctx context.Context, sid string) error {
	return e.KV.Delete(ctx, signInKey(sid))
}

func (e *Editor) SignedIn(ctx context.Context, sid string) (bool, error) {
	v, err := e.KV.Get(ctx, signInKey(sid))
	if errors.Is(err, repos.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

type Phase string

const (
	// PhaseClean: no edits; the draft mirrors the live catalog.
	PhaseClean Phase = "clean"
	// PhaseBuffered: edits saved locally but not yet exported.
	PhaseBuffered Phase = "buffered"
	// PhaseExported: the latest edits have been downloaded as products.json.
	PhaseExported Phase = "exported"
)

type buffer struct {
	Phase   Phase          `json:"phase"`
	Catalog domain.Catalog `json:"data"`
}

// Open returns the draft for sid, starting from live when no buffer exists.
// A buffer that cannot be read is dropped and the draft starts over.
func (e *Editor) Open(ctx context.Context, sid string, live domain.Catalog) (*Draft, error) {
	const op = "admin.Editor.Open"
	d := &Draft{editor: e, key: bufferKey(sid), catalog: live.Clone(), phase: PhaseClean}
	raw, err := e.KV.Get(ctx, d.key)
	if errors.Is(err, repos.ErrNotFound) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var b buffer
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		log.Warn(nil, "admin.buffer.corrupt", err, map[string]any{"key": d.key})
		_ = e.KV.Delete(ctx, d.key)
		return d, nil
	}
	d.catalog = b.Catalog
	d.phase = b.Phase
	if d.catalog.Products == nil {
		d.catalog.Products = []domain.Product{}
	}
	if d.catalog.FulfillmentProviders == nil {
		d.catalog.FulfillmentProviders = map[string]domain.FulfillmentProvider{}
	}
	return d, nil
}
