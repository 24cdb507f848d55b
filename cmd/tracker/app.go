package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/config"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/projection"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/workers"
)

// app is the wired tracker: storage, optional cache, engine, rollover
// worker and HTTP router.
type app struct {
	db     *sqlx.DB
	redis  *redis.Client
	repo   domain.TrackerRepository
	engine *services.TrackerEngine
	worker *workers.RolloverWorker
	router *gin.Engine

	workerDone <-chan struct{}
}

func newApp(ctx context.Context, cfg *config.Config, clock domain.Clock) (*app, error) {
	log.Printf("[DB] Opening %s database...", cfg.DB.Driver)
	db, err := repository.Open(ctx, cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return nil, err
	}

	sqlRepo := repository.NewSQLTrackerRepository(db)
	if err := sqlRepo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var repo domain.TrackerRepository = sqlRepo
	var rdb *redis.Client
	if opts := cfg.Redis.Options(); opts.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, opts)
		if err != nil {
			log.Printf("[CACHE] Running without cache: %v", err)
			rdb = nil
		} else {
			log.Printf("[CACHE] Connected to redis at %s", opts.Addr())
			repo = repository.NewCachedTrackerRepository(repo, rdb)
		}
	}

	dayClock := domain.NewDayClock(clock, cfg.Tracker.RolloverHour)
	engine := services.NewTrackerEngine(repo, dayClock, services.WithNoteDebounce(cfg.Tracker.NoteDebounce))
	worker := workers.NewRolloverWorker(engine, dayClock, cfg.Tracker.RolloverCheck)

	var tokens *services.TokenService
	if cfg.Auth.Secret != "" {
		tokens = services.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	} else {
		log.Println("[HTTP] No auth secret configured, the API is open")
	}

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		TrackerHandler: adapterHTTP.NewTrackerHandler(engine, projection.NewMapper(), worker.Trigger),
		StatsHandler:   adapterHTTP.NewStatsHandler(services.NewStatsService(repo), dayClock),
		TokenService:   tokens,
		Store:          repo,
		Redis:          rdb,
		StartTime:      clock.Now(),
	})

	return &app{
		db:     db,
		redis:  rdb,
		repo:   repo,
		engine: engine,
		worker: worker,
		router: router,
	}, nil
}

// start loads the tracker and begins watching for the day to roll over.
func (a *app) start(ctx context.Context) error {
	if err := a.engine.Process(ctx, services.InitializeTracker{}); err != nil {
		return fmt.Errorf("failed to initialize tracker: %w", err)
	}
	a.workerDone = a.worker.Start(ctx)
	return nil
}

// shutdown saves everything still pending before closing the stores. The
// worker must already be stopping through its context.
func (a *app) shutdown(ctx context.Context) error {
	if a.workerDone != nil {
		select {
		case <-a.workerDone:
		case <-ctx.Done():
		}
	}

	err := a.engine.Close(ctx)
	if err != nil {
		log.Printf("[ENGINE] Shutdown did not finish cleanly: %v", err)
	}

	if a.redis != nil {
		a.redis.Close()
	}
	if cerr := a.db.Close(); cerr != nil {
		log.Printf("[DB] Failed to close database: %v", cerr)
	}
	log.Println("[DB] Database closed.")
	return err
}
