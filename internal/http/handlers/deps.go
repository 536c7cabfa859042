package handlers

import (
	"time"

	"printstore/internal/admin"
	"printstore/internal/catalog"
	"printstore/internal/checkout"
	"printstore/internal/config"
	"printstore/internal/payment"
	"printstore/internal/repos"
	"printstore/internal/services"
)

type Deps struct {
	Config   config.Config
	Loader   *catalog.Loader
	Carts    *services.CartService
	Catalog  *services.CatalogService
	Editor   *admin.Editor
	Sessions *checkout.Sessions
	Notifier checkout.Notifier
	// PayPal returns the API client for a store's PayPal client id, or nil
	// when the server holds no PayPal credentials.
	PayPal func(clientID string) payment.API

	StoreHandler    *StoreHandler
	CartHandler     *CartHandler
	CheckoutHandler *CheckoutHandler
	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler
}

func NewDeps(cfg config.Config, kv repos.KV, loader *catalog.Loader) *Deps {
	notifier := checkout.MultiNotifier{checkout.LogNotifier{}}
	if cfg.NotifyWebhook != "" {
		notifier = append(notifier, checkout.WebhookNotifier{URL: cfg.NotifyWebhook, Timeout: 10 * time.Second})
	}
	d := &Deps{
		Config:   cfg,
		Loader:   loader,
		Carts:    services.NewCartService(kv),
		Catalog:  services.NewCatalogService(),
		Editor:   admin.NewEditor(kv),
		Sessions: checkout.NewSessions(),
		Notifier: notifier,
		PayPal:   payment.NewClients(cfg.PayPalAPIBase, cfg.PayPalSecret).For,
	}
	d.Rewire()
	return d
}

// Rewire rebuilds the handlers from the current dependencies. Call it after
// replacing one of them.
func (d *Deps) Rewire() {
	d.StoreHandler = &StoreHandler{Catalog: d.Catalog}
	d.CartHandler = &CartHandler{}
	d.CheckoutHandler = &CheckoutHandler{Sessions: d.Sessions, Notifier: d.Notifier, PayPal: d.PayPal}
	d.AuthHandler = &AuthHandler{Editor: d.Editor}
	d.AdminHandler = &AdminHandler{Editor: d.Editor}
}
