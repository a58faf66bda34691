package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/starmaker/internal/api/http"
	auth "github.com/mind-engage/starmaker/internal/auth/middleware"
	"github.com/mind-engage/starmaker/internal/config"
	"github.com/mind-engage/starmaker/internal/console"
	"github.com/mind-engage/starmaker/internal/db"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
	storage "github.com/mind-engage/starmaker/internal/storage"
	syncx "github.com/mind-engage/starmaker/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogJSON).With("site_id", cfg.SiteID)

	deps := api.Deps{
		Gate:       console.NewGate(cfg.TeacherPassword, cfg.TeacherPassHash),
		Auth:       auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Logger:     logger,
		Location:   cfg.DisplayLocation(),
		SessionTTL: cfg.SessionTTL,
	}

	// --- Store ---
	var dbh *sql.DB
	if cfg.Mode == config.ModeDemo {
		deps.Store = progress.NewMemoryStore()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbh, err = db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer dbh.Close()

		events := syncx.NewEventRepo(dbh)
		audited := syncx.NewAuditStore(progress.NewSQLStore(dbh), events, cfg.SiteID, logger)
		deps.Store = audited
		deps.Audit = audited
		deps.Events = events
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	deps.Blobs = bs

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.NewServer(deps).Mount(r)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			if err := dbh.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info(context.Background(), "listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(ctx, "shutdown", "error", err)
	}
}
