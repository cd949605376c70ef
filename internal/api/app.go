// Package api wires the auth service together and exposes it over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/signup/internal/api/middleware"
	"github.com/felixgeelhaar/signup/internal/auth"
	"github.com/felixgeelhaar/signup/internal/config"
	"github.com/felixgeelhaar/signup/internal/events"
	"github.com/felixgeelhaar/signup/internal/password"
	"github.com/felixgeelhaar/signup/internal/storage/postgres"
	"github.com/felixgeelhaar/signup/internal/storage/sqlite"
	"github.com/felixgeelhaar/signup/internal/token"
	"github.com/felixgeelhaar/signup/internal/user"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Users    *user.Directory
	Tokens   *token.Manager
	Auth     *auth.Service
	Limiters Limiters

	closers []func() error
}

// Limiters are the rate limit policies applied by the router
type Limiters struct {
	General middleware.Limiter
	Auth    middleware.Limiter
	Signup  middleware.Limiter
}

// Rate limit messages
const (
	MsgTooManyRequests = "Too many requests from this IP, please try again later"
	MsgTooManyAuth     = "Too many authentication attempts, please try again later"
	MsgTooManySignups  = "Too many signup attempts, please try again later"
)

// NewApp connects to the configured infrastructure and wires the service.
// Optional infrastructure (RabbitMQ, Redis) that cannot be reached is logged
// and replaced by in-process fallbacks.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeStore)

	publisher, closePublisher := openPublisher(cfg, logger)
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	limiters, closeLimiters := openLimiters(ctx, cfg, logger)
	closers = append(closers, closeLimiters)

	app, err := Assemble(cfg, logger, store, publisher, limiters)
	if err != nil {
		cleanup()
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// Assemble builds the service graph over an already opened store
func Assemble(cfg *config.Config, logger *slog.Logger, store user.Store, publisher events.Publisher, limiters Limiters) (*App, error) {
	hasher := password.NewBcrypt(cfg.BcryptCost)

	tokens, err := token.NewManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}

	users := user.NewDirectory(store, hasher)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Users:    users,
		Tokens:   tokens,
		Auth:     auth.NewService(users, hasher, tokens, publisher, logger),
		Limiters: limiters,
	}, nil
}

// OpenStore opens the configured user store, running migrations when enabled
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (user.Store, func() error, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		logger.Info("using sqlite user store", "path", cfg.Database.SQLitePath)
		return sqlite.NewUserStore(db), db.Close, nil

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.Database.URL); err != nil {
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres user store")
		return postgres.NewUserStore(pool), func() error { pool.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, func() error) {
	if cfg.RabbitMQURL == "" {
		return events.NopPublisher{}, nil
	}

	conn, err := events.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		logger.Warn("auth events disabled, RabbitMQ unavailable", "error", err)
		return events.NopPublisher{}, nil
	}

	breakerCfg := events.DefaultBreakerConfig()
	breakerCfg.Logger = logger
	return events.NewBreakerPublisher(events.NewProducer(conn), breakerCfg), conn.Close
}

func openLimiters(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Limiters, func() error) {
	rl := cfg.RateLimit

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			rdb := redis.NewClient(opts)
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable, rate limits fail open until it recovers", "error", err)
			}
			logger.Info("using redis rate limiter")
			return Limiters{
				General: middleware.NewRedisLimiter(rdb, "ratelimit:general", rl.Max, rl.Window),
				Auth:    middleware.NewRedisLimiter(rdb, "ratelimit:auth", rl.AuthMax, rl.AuthWindow),
				Signup:  middleware.NewRedisLimiter(rdb, "ratelimit:signup", rl.SignupMax, rl.SignupWindow),
			}, rdb.Close
		}
		logger.Warn("invalid REDIS_URL, using in-memory rate limiter", "error", err)
	}

	return NewMemoryLimiters(cfg)
}

// NewMemoryLimiters creates process-local limiters for the configured policies
func NewMemoryLimiters(cfg *config.Config) (Limiters, func() error) {
	rl := cfg.RateLimit
	general := middleware.NewMemoryLimiter(rl.Max, rl.Window)
	authLim := middleware.NewMemoryLimiter(rl.AuthMax, rl.AuthWindow)
	signup := middleware.NewMemoryLimiter(rl.SignupMax, rl.SignupWindow)

	return Limiters{General: general, Auth: authLim, Signup: signup}, func() error {
		general.Close()
		authLim.Close()
		signup.Close()
		return nil
	}
}

// Close releases infrastructure in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
