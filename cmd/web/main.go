// cmd/web/main.go
//
// splitlink – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → SPLITLINK_* env).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve `vault:` secret references when any are present.
//
//  4. Open the MySQL pool and log the registered form count.
//
//  5. Build stores, the field-mapping cache (when enabled), and the URL
//     composer; start the cache sweeper.
//
//  6. Build the chi router:
//
//     • RequestID, Recoverer     – chi middleware
//     • Security headers         – internal/middleware
//     • Visitor metadata         – requestinfo.Resolver.Enrich
//     • components               – redirect (/), status (/health, /metrics)
//
//  7. Optionally wrap with ForceHTTPS, then serve until SIGINT/SIGTERM.
//     SIGHUP reloads configuration and clears the field caches.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/abtest"
	"github.com/yanizio/splitlink/internal/component"
	"github.com/yanizio/splitlink/internal/config"
	"github.com/yanizio/splitlink/internal/database"
	"github.com/yanizio/splitlink/internal/forms"
	"github.com/yanizio/splitlink/internal/logger"
	"github.com/yanizio/splitlink/internal/middleware"
	"github.com/yanizio/splitlink/internal/redirect"
	"github.com/yanizio/splitlink/internal/requestinfo"
	"github.com/yanizio/splitlink/internal/server"
	"github.com/yanizio/splitlink/internal/urlbuild"
	"github.com/yanizio/splitlink/internal/vault"

	_ "github.com/yanizio/splitlink/components/redirect"
	_ "github.com/yanizio/splitlink/components/status"
)

// secretTTL bounds how long a resolved Vault value is cached.
const secretTTL = time.Hour

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Secrets ─────────────────────────────────────────────────────
	//
	dbPass, formsSecret := cfg.Database.Password, cfg.Forms.Secret
	if vault.IsRef(dbPass) || vault.IsRef(formsSecret) {
		vc, err := vault.New(ctx)
		if err != nil {
			logOut.Fatalw("vault client", "err", err)
		}
		if dbPass, err = vc.Resolve(ctx, dbPass, secretTTL); err != nil {
			logOut.Fatalw("resolve database password", "err", err)
		}
		if formsSecret, err = vc.Resolve(ctx, formsSecret, secretTTL); err != nil {
			logOut.Fatalw("resolve forms secret", "err", err)
		}
	}

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	logOut.Info("connecting to database …")
	db, err := database.OpenWithOptions(cfg.Database.DSN, dbPass, cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	if err != nil {
		logOut.Fatalw("connect database", "err", err)
	}
	defer db.Close()
	logOut.Info("database online")

	//
	// ── 3.  Stores, field cache, composer ──────────────────────────────
	//
	records := redirect.NewStore(db, cfg.App.BaseURL)
	variants := abtest.NewStore(db)

	var (
		mapper urlbuild.FieldMapper
		fields *forms.FieldCache
	)
	if cfg.Forms.Enabled {
		formStore := forms.NewStore(db)

		// Early sanity check.
		if all, err := formStore.All(ctx); err == nil {
			logOut.Infof("%d form mapping(s) registered", len(all))
		}

		client := forms.NewClient(forms.ClientOptions{
			BaseURL: cfg.Forms.SchemaURL,
			Secret:  formsSecret,
			Timeout: cfg.Forms.Timeout,
			Retries: cfg.Forms.Retries,
		})
		fields = forms.NewFieldCache(formStore, client, forms.CacheOptions{
			FieldTTL:   cfg.Forms.FieldTTL,
			SchemaTTL:  cfg.Forms.SchemaTTL,
			MaxEntries: cfg.Forms.MaxEntries,
		})
		go fields.Run(ctx, cfg.Forms.SweepInterval)
		mapper = fields
	}
	composer := urlbuild.New(mapper, urlbuild.Options{
		HostPattern:   cfg.Forms.HostPattern,
		ClickIDMaxAge: cfg.Redirect.ClickIDMaxAge,
	})

	info, err := requestinfo.NewResolver(cfg.Geo.DBPath)
	if err != nil {
		logOut.Warnw("geolocation disabled", "err", err)
		info = &requestinfo.Resolver{}
	}
	defer info.Close()

	//
	// ── 4.  Router and components ──────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.Security, info.Enrich)

	deps := component.Deps{
		Config:   cfg,
		DB:       db,
		Records:  records,
		Variants: variants,
		Composer: composer,
	}
	for _, c := range component.All() {
		if err := c.Init(deps); err != nil {
			logOut.Fatalw("component init", "component", c.Name(), "err", err)
		}
		c.Routes(r)
		logOut.Infow("component mounted", "component", c.Name())
	}

	var handler http.Handler = r
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}

	//
	// ── 5.  SIGHUP: reload config, drop field caches ───────────────────
	//
	go handleHangup(ctx, fields)

	if err := server.Run(ctx, server.New(cfg.HTTP.ListenAddr, handler)); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
}

// handleHangup re-reads configuration on SIGHUP.  Listener, pool, and TTL
// changes still need a restart; the reload validates the new file and the
// caches are dropped so edited form mappings take effect immediately.
func handleHangup(ctx context.Context, fields *forms.FieldCache) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := config.Reload(); err != nil {
				zap.L().Warn("config reload failed", zap.Error(err))
			}
			if fields != nil {
				fields.Clear()
			}
		}
	}
}
