package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell.org/internal/auth"
	"inkwell.org/internal/httpapi"
	"inkwell.org/internal/migrate"
	"inkwell.org/internal/obs"
	"inkwell.org/migrations"
)

var version = "0.3.1"

func main() {
	obs.Init()

	accessSecret := os.Getenv("INKWELL_ACCESS_SECRET")
	refreshSecret := os.Getenv("INKWELL_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		log.Fatal("INKWELL_ACCESS_SECRET and INKWELL_REFRESH_SECRET must be set")
	}

	var (
		users    auth.UserStore
		sessions auth.SessionStore
		db       *sql.DB
	)
	if dsn := os.Getenv("INKWELL_PG_DSN"); dsn != "" {
		store, err := auth.OpenPG(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		db = store.DB()

		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.NewManager(db, migrations.FS()).Up(mctx); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()

		users, sessions = store, store
	} else {
		// No database configured: run against the in-memory store.
		// Useful for local development only; nothing survives a restart.
		log.Println("INKWELL_PG_DSN not set, using in-memory store")
		mem := auth.NewMemoryStore()
		users, sessions = mem, mem
	}

	tokenOpts := []auth.TokenOption{}
	if ttl := durationEnv("INKWELL_ACCESS_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := durationEnv("INKWELL_REFRESH_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithRefreshTTL(ttl))
	}

	tokens, err := auth.NewTokenService(sessions, accessSecret, refreshSecret, tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	svc, err := auth.NewService(users, sessions, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:       svc,
		Tokens:     tokens,
		Registry:   auth.NewRegistry(),
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	addr := os.Getenv("INKWELL_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting inkwell-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func durationEnv(name string) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("parse %s: %v", name, err)
	}
	return d
}
