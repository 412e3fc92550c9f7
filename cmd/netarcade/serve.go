package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/dkarpov/netarcade/internal/config"
	"github.com/dkarpov/netarcade/internal/core"
	"github.com/dkarpov/netarcade/internal/engine"
	"github.com/dkarpov/netarcade/internal/storage"
	"github.com/dkarpov/netarcade/internal/tournament"
	"github.com/dkarpov/netarcade/internal/transport/ws"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arcade server",
	Long: `Start the websocket match server.

The server drives every room at a fixed 60 Hz physics tick plus a 1 Hz AI
cadence, persists finished matches to SQLite, and exposes a small REST
surface for match history.

Examples:
  netarcade serve                           # Listen on :8080
  netarcade serve --addr :9000              # Listen on port 9000
  netarcade serve --config ./server.yaml    # Use a specific config`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "netarcade",
	})

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	secret, err := ws.LoadOrCreateSecret(expandHome(cfg.Auth.KeyDir))
	if err != nil {
		return err
	}
	verifier := ws.NewVerifier(secret)

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info("seeding match rng", "seed", seed)
	seedCounter := seed
	newRand := func() core.Rand {
		return core.NewRand(atomic.AddInt64(&seedCounter, 1))
	}

	clock := clockwork.NewRealClock()
	hub := ws.NewHub(logger)
	registry := engine.NewSessionRegistry(engine.RegistryConfig{
		Variants: engine.VariantConfig{
			Pong:   cfg.Pong,
			Tetris: cfg.Tetris,
		},
		DestroyDelay: cfg.Server.RoomDestroyDelay.Std(),
	}, clock, hub, store, newRand, logger)
	tournaments := tournament.NewScheduler(cfg.Tournament.Tournament(), clock, registry, hub, core.NewRand(seed), logger)
	dispatcher := ws.NewDispatcher(registry, tournaments, hub, logger)

	router := ws.NewRouter(verifier, hub, dispatcher, store, cfg.Auth.AllowGuests, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go registry.Run()
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	tournaments.Stop()
	registry.Stop()
	return nil
}

// expandHome resolves a leading ~ the same way the storage layer does.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s%s", home, path[1:])
}
