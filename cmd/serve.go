package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oneweb/helpdesk-chat/internal/config"
	"github.com/oneweb/helpdesk-chat/internal/events"
	"github.com/oneweb/helpdesk-chat/internal/gateways"
	"github.com/oneweb/helpdesk-chat/internal/queues"
	"github.com/oneweb/helpdesk-chat/internal/server"
	"github.com/oneweb/helpdesk-chat/internal/storage"
	"github.com/oneweb/helpdesk-chat/internal/storage/memory"
	"github.com/oneweb/helpdesk-chat/internal/storage/pg"
)

func runServe() error {
	// Secrets live in .env during development; a missing file is fine.
	godotenv.Load()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg)

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	gatewayReg, err := registerGateways(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg, stores, queues.NewRegistry(), events.NewFeed(), gatewayReg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

// openStores picks the storage backend. The returned close func is a no-op
// for the in-memory backend.
func openStores(cfg *config.Config) (*storage.Stores, func(), error) {
	switch cfg.Database.Mode {
	case "", "memory":
		slog.Info("using in-memory storage")
		return memory.NewStores(), func() {}, nil
	case "postgres":
		if cfg.Database.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("HELPDESK_POSTGRES_DSN environment variable is not set")
		}
		db, err := pg.OpenDB(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		slog.Info("using postgres storage")
		return pg.NewStores(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database mode %q", cfg.Database.Mode)
	}
}

// registerGateways builds the alias registry from config. Gateway aliases
// double as webhook path segments: POST /gateways/whatsapp and so on.
func registerGateways(cfg *config.Config) (*gateways.Registry, error) {
	reg := gateways.NewRegistry()

	if cfg.Gateways.WhatsApp.Enabled {
		gw, err := gateways.NewWhatsApp(cfg.Gateways.WhatsApp)
		if err != nil {
			return nil, fmt.Errorf("whatsapp gateway: %w", err)
		}
		if err := reg.Register("whatsapp", gw); err != nil {
			return nil, err
		}
		slog.Info("gateway registered", "alias", "whatsapp")
	}

	if cfg.Gateways.Viber.Enabled {
		gw, err := gateways.NewViber(cfg.Gateways.Viber)
		if err != nil {
			return nil, fmt.Errorf("viber gateway: %w", err)
		}
		if err := reg.Register("viber", gw); err != nil {
			return nil, err
		}
		slog.Info("gateway registered", "alias", "viber")
	}

	return reg, nil
}
