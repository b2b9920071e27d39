package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/traveltrackie/superteam-ireland/internal/certificate"
	"github.com/traveltrackie/superteam-ireland/internal/config"
	"github.com/traveltrackie/superteam-ireland/internal/database"
	"github.com/traveltrackie/superteam-ireland/internal/engine"
	"github.com/traveltrackie/superteam-ireland/internal/handler/health"
	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/matcher"
	"github.com/traveltrackie/superteam-ireland/internal/migrations"
	"github.com/traveltrackie/superteam-ireland/internal/reward"
	"github.com/traveltrackie/superteam-ireland/internal/server"
	"github.com/traveltrackie/superteam-ireland/internal/store"
	"github.com/traveltrackie/superteam-ireland/internal/telemetry"
)

const serviceName = "superteam-ireland-hunt"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// --- Catalog ---
	catalog, err := hunt.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded", "title", catalog.Title, "locations", catalog.Len())

	checks := map[string]health.Checker{}

	// --- Session store ---
	sessions, closeStore, err := openStore(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Redis ---
	var (
		locker  store.Locker      = store.NewKeyedMutex()
		revoked store.Revocations = store.NewMemoryRevocations()
	)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		// Locks cover one event and its store writes. Rewards are sent
		// after the lock is released.
		rl := store.NewRedisLocker(rdb, time.Minute)
		locker = rl
		revoked = store.NewRedisRevocations(rdb)
		checks["redis"] = rl
		logger.Info("connected to redis, using distributed session locks")
	}

	// --- Rewards ---
	var (
		issuer    reward.Issuer = reward.Disabled{}
		rpcHealth health.Checker
	)
	if cfg.RewardsEnabled {
		sol, err := reward.NewSolanaIssuer(reward.SolanaConfig{
			RPCURL:    cfg.SolanaRPCURL,
			SenderKey: cfg.SenderPrivateKey,
			Mint:      cfg.TokenMint,
			Decimals:  cfg.TokenDecimals,
		}, logger)
		if err != nil {
			return fmt.Errorf("configuring solana rewards: %w", err)
		}
		issuer = reward.NewRetrySubmitter(sol, reward.RetryPolicy{
			MaxAttempts:     cfg.RewardMaxAttempts,
			InitialInterval: 500 * time.Millisecond,
			Timeout:         cfg.RewardTimeout,
		}, logger)
		rpcHealth = sol
		logger.Info("solana rewards enabled", "sender", sol.Sender().String(), "mint", cfg.TokenMint)
	} else {
		logger.Warn("rewards disabled, transactions are recorded but not sent")
	}

	// --- Answer matching ---
	var judge matcher.Judge
	if cfg.AIAPIKey != "" {
		judge = matcher.NewAIJudge(cfg.AIAPIKey, cfg.AIModel, cfg.AIBaseURL)
		logger.Info("ai answer judge enabled", "model", cfg.AIModel)
	}

	certs := certificate.NewIssuer(cfg.CertSecret, catalog.Title)

	eng := engine.New(engine.Config{
		Catalog: catalog,
		Rules: hunt.Rules{
			ArrivalReward: cfg.RewardArrive,
			AnswerReward:  cfg.RewardCorrect,
			HintPenalty:   cfg.HintPenalty,
			MaxAttempts:   cfg.MaxAttempts,
		},
		Store:   sessions,
		Locker:  locker,
		Issuer:  issuer,
		Matcher: matcher.New(cfg.FuzzyThreshold, judge, logger),
		Certs:   certs,
		Selfies: store.NewSelfieStore(cfg.SelfieDir()),
		Wallet:  cfg.ReceiverWallet,
		TTL:     cfg.SessionTTL,
		Logger:  logger,
	})

	if !cfg.AdminEnabled() {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set, admin api disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Config{
		Engine:      eng,
		Certs:       certs,
		Admin:       server.AdminCredentials{Email: cfg.AdminEmail, PasswordHash: cfg.AdminPasswordHash},
		Revocations: revoked,
		AudioDir:    cfg.AudioDir,
		SPADir:      cfg.SPADir,
	}, func(r chi.Router) {
		h := health.NewHandler(logger, checks)
		if rpcHealth != nil {
			h.Optional("solana", rpcHealth)
		}
		r.Mount("/healthz", h.Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openStore opens the configured session backend and registers its health
// check.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, checks map[string]health.Checker) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := database.Open(ctx, cfg.DBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath())
		ds := store.NewDocStore(db)
		checks["sqlite"] = ds
		return ds, func() { db.Close() }, nil

	case "bolt":
		bs, err := store.OpenBolt(cfg.BoltPath())
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt store: %w", err)
		}
		logger.Info("opened bolt store", "path", cfg.BoltPath())
		checks["bolt"] = health.CheckerFunc(func(ctx context.Context) error {
			_, err := bs.Get(ctx, "healthz")
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		})
		return bs, func() { bs.Close() }, nil

	default:
		logger.Warn("using in-memory session store, sessions are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
