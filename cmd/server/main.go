// Command server runs the facility registry: the public read API, the
// administrator overlay API, and the internal reconciliation endpoints.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facreg/internal/collector"
	"facreg/internal/facility/cache"
	facilityhandler "facreg/internal/facility/handler"
	facilitymodels "facreg/internal/facility/models"
	facilityservice "facreg/internal/facility/service"
	facilitystore "facreg/internal/facility/store/facility"
	graveyardstore "facreg/internal/facility/store/graveyard"
	overlayhandler "facreg/internal/overlay/handler"
	overlaymodels "facreg/internal/overlay/models"
	overlayservice "facreg/internal/overlay/service"
	overlaystore "facreg/internal/overlay/store"
	"facreg/internal/platform/config"
	"facreg/internal/platform/httpserver"
	"facreg/internal/platform/logger"
	"facreg/internal/platform/metrics"
	"facreg/internal/platform/middleware"
	platformredis "facreg/internal/platform/redis"
	"facreg/internal/reload"
	reloadhandler "facreg/internal/reload/handler"
	"facreg/pkg/domain"
)

// Store unions so the memory and postgres implementations are
// interchangeable at wiring time.
type facilityStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*facilitymodels.FacilityRecord, error)
	Save(ctx context.Context, rec facilitymodels.FacilityRecord) error
	Delete(ctx context.Context, key domain.FacilityKey) error
	AllKeys(ctx context.Context) ([]domain.FacilityKey, error)
	All(ctx context.Context) ([]facilitymodels.FacilityRecord, error)
}

type graveyardStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*facilitymodels.GraveyardRecord, error)
	Save(ctx context.Context, rec facilitymodels.GraveyardRecord) error
	Delete(ctx context.Context, key domain.FacilityKey) error
	All(ctx context.Context) ([]facilitymodels.GraveyardRecord, error)
}

type overlayStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*overlaymodels.Overlay, error)
	Save(ctx context.Context, ov overlaymodels.Overlay) error
	Delete(ctx context.Context, key domain.FacilityKey) error
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.Setup()
	m := metrics.New()

	var (
		facilities facilityStore
		graveyard  graveyardStore
		overlays   overlayStore
		db         *sql.DB
	)
	if cfg.Database.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		if err := db.Ping(); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		facilities = facilitystore.NewPostgres(db)
		graveyard = graveyardstore.NewPostgres(db)
		overlays = overlaystore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		facilities = facilitystore.NewMemory()
		graveyard = graveyardstore.NewMemory()
		overlays = overlaystore.NewMemory()
		log.Warn("no database configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	readCache := cache.New(redisClient, cfg.Redis.TTL, log)
	if readCache != nil {
		log.Info("facility read cache enabled", "ttl", cfg.Redis.TTL)
	}

	var engineCollector reload.Collector
	var warehouseDB *sql.DB
	if cfg.Collector.SourcesFile != "" {
		manifest, err := collector.LoadManifest(cfg.Collector.SourcesFile)
		if err != nil {
			log.Error("load sources manifest", "error", err)
			os.Exit(1)
		}
		engineCollector, warehouseDB, err = collector.FromManifest(manifest, log)
		if err != nil {
			log.Error("configure collector", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no sources manifest configured, reload limited to uploaded batches")
		engineCollector = noCollector{}
	}

	engine := reload.NewEngine(
		engineCollector, facilities, graveyard, overlays, log, m,
		reload.WithCache(readCache),
	)

	overlaySvc := overlayservice.New(overlays, facilities, readCache, log, m)
	facilitySvc := facilityservice.New(facilities, readCache, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(m))
	router.Use(middleware.Timeout(15 * time.Minute))

	facilityhandler.New(facilitySvc, log).Register(router)
	overlayhandler.New(overlaySvc, log).Register(router)
	reloadhandler.New(engine, facilities, graveyard, overlaySvc, log).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", healthHandler(db, redisClient))

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting facility registry", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if warehouseDB != nil {
		warehouseDB.Close()
	}
	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
}

// noCollector backs deployments without a sources manifest. Collection
// fails rather than returning an empty snapshot, which would push every
// live facility toward the graveyard; only uploaded batches mutate the
// registry in this mode.
type noCollector struct{}

func (noCollector) CollectFacilities(context.Context) ([]facilitymodels.CollectedFacility, error) {
	return nil, errors.New("no upstream sources configured")
}

func healthHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
