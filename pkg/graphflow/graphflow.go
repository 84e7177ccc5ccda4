package graphflow

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/RealZimboGuy/graphflow/internal/config"
	"github.com/RealZimboGuy/graphflow/internal/controllers"
	"github.com/RealZimboGuy/graphflow/internal/engine"
	"github.com/RealZimboGuy/graphflow/internal/repository"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
)

// Engine is a graph manager wired to the store selected by configuration.
type Engine struct {
	Manager *engine.GraphManager
	db      *sql.DB
	redis   *redis.Client
}

// New opens the store selected by GFLOW_DATABASE_TYPE and builds a manager
// over registry. MEMORY keeps everything in process.
func New(ctx context.Context, registry *core.Registry) (*Engine, error) {
	eng := &Engine{}
	var graphRepo engine.GraphRepo
	var runRepo engine.RunRepo

	switch config.GetSystemSettingString(config.DATABASE_TYPE) {
	case config.DATABASE_TYPE_MEMORY:
		slog.InfoContext(ctx, "Using in-memory store, graphs and runs are lost on restart")
		graphRepo = repository.NewMemoryGraphRepository()
		runRepo = repository.NewMemoryRunRepository()
	case config.DATABASE_TYPE_REDIS:
		client, err := repository.OpenRedis(ctx, config.GetSystemSettingString(config.REDIS_URL))
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using Redis store", "prefix", config.GetSystemSettingString(config.REDIS_PREFIX))
		eng.redis = client
		graphRepo = repository.NewRedisGraphRepository(client, config.GetSystemSettingString(config.REDIS_PREFIX))
		runRepo = repository.NewRedisRunRepository(client, config.GetSystemSettingString(config.REDIS_PREFIX))
	default:
		db, err := repository.OpenDatabase()
		if err != nil {
			return nil, err
		}
		eng.db = db
		graphRepo = repository.NewGraphRepository(db)
		runRepo = repository.NewRunRepository(db)
	}

	manager := engine.NewGraphManager(graphRepo, runRepo, registry, core.NewRealClock(), engine.ManagerOptions{
		MaxIterations: config.GetSystemSettingInteger(config.ENGINE_MAX_ITERATIONS),
		RunTimeout:    config.GetSystemSettingDuration(config.ENGINE_RUN_TIMEOUT),
		Workers:       config.GetSystemSettingInteger(config.ENGINE_EXECUTOR_SIZE),
		QueueSize:     config.GetSystemSettingInteger(config.ENGINE_QUEUE_SIZE),
	})
	eng.Manager = manager
	return eng, nil
}

func (e *Engine) Close() error {
	switch {
	case e.db != nil:
		return e.db.Close()
	case e.redis != nil:
		return e.redis.Close()
	}
	return nil
}

// RegisterRoutes mounts the HTTP API on mux, guarded by the configured API key.
func (e *Engine) RegisterRoutes(mux *http.ServeMux) {
	auth := controllers.NewAuthController(config.GetSystemSettingString(config.API_KEY_HASH))
	if !auth.Enabled() {
		slog.Warn("GFLOW_API_KEY_HASH is not set, API is unauthenticated")
	}
	controllers.NewGraphController(e.Manager, auth).RegisterRoutes(mux)
	controllers.NewRunController(e.Manager, auth).RegisterRoutes(mux)
	controllers.NewStreamController(e.Manager, auth).RegisterRoutes(mux)
}

// Start boots the engine and HTTP server. The registry must hold every step
// the stored graphs reference. This call blocks until the HTTP server stops.
func Start(ctx context.Context, mux *http.ServeMux, registry *core.Registry) error {
	eng, err := New(ctx, registry)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.Manager.Start(ctx)

	if mux == nil {
		mux = http.NewServeMux()
	}
	eng.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.InfoContext(ctx, "Starting HTTP server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.ErrorContext(ctx, "HTTP server failed", "error", err)
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels; anything else
// is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func SetupLogger(level string) {
	w := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      ParseLevel(level),
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
