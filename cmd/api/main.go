package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smena.org/internal/access"
	"smena.org/internal/authn"
	"smena.org/internal/httpapi"
	"smena.org/internal/identity"
	"smena.org/internal/obs"
	"smena.org/internal/paper"
	"smena.org/internal/permission"
	"smena.org/internal/role"
	"smena.org/internal/store/pg"
	"smena.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Хранилище: Postgres при заданном DSN, иначе in-memory (dev/demo).
	var (
		pgStore    *pg.Store
		paperStore paper.Store
		idnStore   identity.Store
		snapStore  role.SnapshotStore
	)
	if dsn := os.Getenv("SMENA_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		paperStore = pgStore.Papers()
		idnStore = pgStore.Identities()
		snapStore = pgStore.Snapshots()
	} else {
		log.Println("SMENA_PG_DSN is not set, using in-memory stores")
		paperStore = paper.NewInMemory()
		idnStore = identity.NewInMemory()
		snapStore = role.NewInMemorySnapshots()
	}

	events := stream.New()

	engineOpts := []role.EngineOption{role.WithEvents(events)}
	if raw := os.Getenv("SMENA_PAPER_QUERY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse SMENA_PAPER_QUERY_TIMEOUT: %v", err)
		}
		engineOpts = append(engineOpts, role.WithQueryTimeout(d))
	}
	engine := role.NewEngine(paperStore, snapStore, engineOpts...)

	evaluator := permission.NewEvaluator()
	facade := access.NewFacade(engine, evaluator, idnStore)

	identities := identity.NewService(idnStore)
	papers := paper.NewService(paperStore, engine, facade, events)

	var tokens *authn.Tokens
	if secret := os.Getenv("SMENA_AUTH_SECRET"); secret != "" {
		var err error
		tokens, err = authn.NewTokens(secret, 15*time.Minute)
		if err != nil {
			log.Fatalf("auth: %v", err)
		}
	} else {
		log.Println("SMENA_AUTH_SECRET is not set, requests are trusted by X-Identity-Id header")
	}

	var probe httpapi.ReadyProbe
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(probe, version, httpapi.Deps{
		Tokens:     tokens,
		Identities: identities,
		Papers:     papers,
		Facade:     facade,
		Events:     events,
	})

	addr := os.Getenv("SMENA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// WriteTimeout не ставим: /v1/events держит соединение открытым.
	}

	log.Printf("Starting smena-api %s on %s", version, srv.Addr)

	// graceful shutdown
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
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
