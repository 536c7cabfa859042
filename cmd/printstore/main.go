package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printstore/internal/catalog"
	"printstore/internal/config"
	"printstore/internal/http/handlers"
	applog "printstore/internal/log"
	"printstore/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	kv, closeKV, err := openKV(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeKV()

	loader := catalog.NewLoader(catalog.NewSource(cfg.CatalogSource))
	deps := handlers.NewDeps(cfg, kv, loader)
	app := handlers.NewApp(deps)

	log.Printf("[static] /static -> %s", cfg.StaticDir)
	log.Printf("[static] /media  -> %s", cfg.MediaDir)
	log.Printf("[catalog] source -> %s", loader.Source())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, deps, cfg.SessionTTL)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[server] listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}

func openKV(cfg config.Config) (repos.KV, func(), error) {
	if cfg.StorageBackend == "redis" {
		client, err := repos.OpenRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repos.NewRedisRepo(client, "printstore"), func() { _ = client.Close() }, nil
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	return repos.NewKVRepo(db), func() { _ = db.Close() }, nil
}

// sweepSessions drops checkout sessions idle for longer than ttl.
func sweepSessions(ctx context.Context, d *handlers.Deps, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := d.Sessions.Sweep(ttl); n > 0 {
				applog.Info(nil, "checkout.session.sweep", map[string]any{"dropped": n})
			}
		}
	}
}
