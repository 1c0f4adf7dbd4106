package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/azerothgo/azerothgo/internal/authserver"
	"github.com/azerothgo/azerothgo/internal/config"
	"github.com/azerothgo/azerothgo/internal/db"
	"github.com/azerothgo/azerothgo/internal/realmlist"
)

const ConfigPath = "config/authserver.yaml"

// realmRefreshInterval is how often the realm list is re-read from the
// database.
const realmRefreshInterval = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("auth server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("AZEROTHGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAuthServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port,
		"strict_version_check", cfg.StrictVersionCheck)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.Migrate(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	accounts := db.NewAccountRepository(database.Pool())
	bans := db.NewBanRepository(database.Pool())
	realms := db.NewRealmRepository(database.Pool())

	realmStore := realmlist.NewStore()
	if err := realmStore.Refresh(ctx, realms); err != nil {
		return fmt.Errorf("loading realm list: %w", err)
	}
	slog.Info("realm list loaded", "realms", len(realmStore.All()))

	server := authserver.NewServer(cfg, accounts, bans, realms, realmStore)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("auth server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(realmRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := realmStore.Refresh(gctx, realms); err != nil {
					slog.Error("refreshing realm list", "err", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
