package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/example/mentoring-scheduler/internal/application"
	"github.com/example/mentoring-scheduler/internal/config"
	httptransport "github.com/example/mentoring-scheduler/internal/http"
	"github.com/example/mentoring-scheduler/internal/logging"
	"github.com/example/mentoring-scheduler/internal/metrics"
	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/persistence/kv"
	"github.com/example/mentoring-scheduler/internal/persistence/memory"
	"github.com/example/mentoring-scheduler/internal/persistence/sqlite"
	"github.com/example/mentoring-scheduler/internal/seed"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		bootstrap.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, level, cfg.LogFormat)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("mentoring API stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	primary, err := openPrimaryStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := primary.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	sessions, closeSessions := openSessionStore(ctx, cfg, primary, logger)
	defer func() {
		if cerr := closeSessions(); cerr != nil {
			logger.Error("failed to close session store", "error", cerr)
		}
	}()

	if cfg.SeedDemo {
		if _, err := seedDemo(ctx, primary, cfg.PasswordCost, logger); err != nil {
			return err
		}
	}

	recorder := metrics.NewRecorder()
	handler := newAPIHandler(apiDeps{
		Config:   cfg,
		Primary:  primary,
		Sessions: sessions,
		Metrics:  recorder,
		Now:      time.Now,
		Tokens:   newToken,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("mentoring API listening", "addr", server.Addr, "store", cfg.Store, "session_store", cfg.SessionStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// primaryStore is the backend holding rosters, meetings, availability and accounts.
// It also serves sessions and notes unless another session store is configured.
type primaryStore interface {
	persistence.DirectoryRepository
	persistence.MeetingRepository
	persistence.AvailabilityRepository
	persistence.AccountRepository
	persistence.SessionRepository
	persistence.NotesRepository
	io.Closer
}

// sessionStore serves the short-lived session and notes state.
type sessionStore interface {
	persistence.SessionRepository
	persistence.NotesRepository
}

func openPrimaryStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (primaryStore, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDSN, err)
		}
		logger.Info("using sqlite store", "dsn", cfg.SQLiteDSN)
		return store, nil
	case config.StoreMemory, "":
		logger.Info("using in-memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openSessionStore selects the session backend. An unreachable Redis falls back
// to the in-process key/value store so the API still starts.
func openSessionStore(ctx context.Context, cfg config.Config, primary primaryStore, logger *slog.Logger) (sessionStore, func() error) {
	noop := func() error { return nil }

	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		redisStore, err := kv.NewRedisStore(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err == nil {
			logger.Info("using redis session store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
			return kv.NewRepository(redisStore, time.Now), redisStore.Close
		}
		logger.Warn("redis unavailable, falling back to in-process session store", "addr", cfg.RedisAddr, "error", err)
		return openMemorySessionStore()
	case config.SessionStoreKV:
		logger.Info("using in-process session store")
		return openMemorySessionStore()
	default:
		return primary, noop
	}
}

// sessionSweepInterval is how often the in-process store drops expired sessions.
const sessionSweepInterval = 10 * time.Minute

func openMemorySessionStore() (sessionStore, func() error) {
	store := kv.NewMemoryStore(time.Now)
	return kv.NewRepository(store, time.Now), store.StartSweeper(sessionSweepInterval)
}

func seedDemo(ctx context.Context, primary primaryStore, passwordCost int, logger *slog.Logger) (bool, error) {
	applied, err := seed.Apply(ctx, seed.Repositories{
		Directory:    primary,
		Meetings:     primary,
		Availability: primary,
		Accounts:     primary,
	}, seed.Demo(), seed.Options{PasswordCost: passwordCost, Logger: logger})
	if err != nil {
		return false, fmt.Errorf("seed demo data: %w", err)
	}
	return applied, nil
}

type apiDeps struct {
	Config   config.Config
	Primary  primaryStore
	Sessions sessionStore
	Metrics  *metrics.Recorder
	Now      func() time.Time
	Tokens   func() string
	Logger   *slog.Logger
}

// newAPIHandler wires services, handlers and middleware into the served handler.
func newAPIHandler(deps apiDeps) http.Handler {
	cfg, logger := deps.Config, deps.Logger
	notifier := notify.NewDispatcher(notify.NewLogSink(logger))

	authService := application.NewAuthServiceWithLogger(deps.Primary, deps.Primary, deps.Sessions, deps.Tokens, deps.Now, cfg.SessionTTL, logger).
		WithPasswordCost(cfg.PasswordCost).
		WithNotifier(notifier)
	directoryService := application.NewDirectoryService(deps.Primary, deps.Sessions, deps.Now, logger)
	meetingService := application.NewMeetingServiceWithLogger(deps.Primary, deps.Primary, notifier, linkToken, deps.Now, logger).
		WithLocation(cfg.Location)
	notesService := application.NewNotesService(deps.Sessions, deps.Primary, notifier, logger)
	availabilityService := application.NewAvailabilityService(deps.Primary, deps.Primary, cfg.Location, cfg.SlotInterval, logger)

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		meetingService = meetingService.WithObserver(deps.Metrics)
		notesService = notesService.WithObserver(deps.Metrics)
		metricsHandler = deps.Metrics.Handler()
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Directory:    httptransport.NewDirectoryHandler(directoryService, logger),
		Meetings:     httptransport.NewMeetingHandler(meetingService, logger),
		Notes:        httptransport.NewNotesHandler(notesService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Metrics:      metricsHandler,
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	gated := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httptransport.IsPublicRequest(r) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	limiter := httptransport.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)
	var handler http.Handler = httptransport.CollectNotifications(gated)
	handler = limiter.Middleware(handler)
	handler = cors.New(corsOptions(cfg.CORSOrigins)).Handler(handler)
	if deps.Metrics != nil {
		handler = deps.Metrics.InstrumentHandler(handler)
	}
	return httptransport.RequestLogger(logger)(handler)
}

// corsOptions allows credentialed requests only from an explicit origin list.
// Browsers refuse cookies on a wildcard origin, so "*" keeps to header tokens.
func corsOptions(origins []string) cors.Options {
	wildcard := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			wildcard = true
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Session-Token"},
		ExposedHeaders:   []string{"X-Session-Token"},
		AllowCredentials: !wildcard,
	}
}

func newToken() string {
	return uuid.NewString()
}

// linkToken yields the suffix of generated meeting links, shaped like abc-defg-hij.
func linkToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[0:3] + "-" + raw[3:7] + "-" + raw[7:10]
}
