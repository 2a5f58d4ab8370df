package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mfeller/stocksim/internal/auth"
	"github.com/mfeller/stocksim/internal/config"
	"github.com/mfeller/stocksim/internal/events"
	"github.com/mfeller/stocksim/internal/events/kafka"
	"github.com/mfeller/stocksim/internal/ledger"
	"github.com/mfeller/stocksim/internal/quote"
	"github.com/mfeller/stocksim/internal/server"
	"github.com/mfeller/stocksim/internal/storage"
	"github.com/mfeller/stocksim/internal/storage/memory"
	"github.com/mfeller/stocksim/internal/storage/postgres"
	"github.com/mfeller/stocksim/internal/storage/sqlite"
	"github.com/mfeller/stocksim/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load .env if present, before config expands ${VAR} references.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"addr", cfg.Server.Addr,
		"storage_driver", cfg.Storage.Driver,
		"quote_url", cfg.Quote.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect storage
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("storage ready", "driver", cfg.Storage.Driver)

	// Quote provider client
	quotes := quote.NewClient(
		cfg.Quote.BaseURL,
		cfg.Quote.APIKey,
		quote.WithLogger(logger),
		quote.WithTimeout(cfg.Quote.Timeout),
	)

	// Optional trade-event publisher
	var publisher events.Publisher
	if len(cfg.Events.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		defer kp.Close()
		publisher = kp
		logger.Info("trade event publishing enabled",
			"brokers", cfg.Events.Brokers,
			"topic", cfg.Events.Topic,
		)
	}

	// Core services
	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if publisher != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(publisher))
	}
	ledgerSvc := ledger.New(store, quotes, ledgerOpts...)

	gate := auth.NewGate(store,
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(gate, ledgerSvc, store, logger).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// openStore builds the storage backend selected in config.
func openStore(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		store := postgres.NewStore(pool)
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case "sqlite":
		return sqlite.Open(cfg.Storage.SQLite.Path)

	case "memory":
		logger.Warn("using in-memory storage, all state is lost on restart")
		return memory.NewStore(), nil

	default:
		// Unreachable after config validation.
		return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}
}
