// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mingleton/roombox/internal/api/httpapi"
	"github.com/mingleton/roombox/internal/app/notification"
	"github.com/mingleton/roombox/internal/app/playback"
	"github.com/mingleton/roombox/internal/app/playlist"
	"github.com/mingleton/roombox/internal/app/queue"
	"github.com/mingleton/roombox/internal/app/room"
	"github.com/mingleton/roombox/internal/infra/config"
	"github.com/mingleton/roombox/internal/infra/logger"
	"github.com/mingleton/roombox/internal/infra/resolver"
	"github.com/mingleton/roombox/internal/infra/store"
	"github.com/mingleton/roombox/internal/infra/transport"
)

var (
	app        = kingpin.New("roombox-server", "roombox shared listening room server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run server (a separate function ensures defers run on error exits)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Open the queue store
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	// Create the song resolver client
	resolverClient, err := resolver.New(resolver.Config{
		BaseURL: cfg.Resolver.BaseURL,
		APIKey:  cfg.Resolver.APIKey,
		Timeout: time.Duration(cfg.Resolver.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create resolver client: %w", err)
	}

	// Create the audio transport
	audioTransport, err := newTransport(cfg)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	// Create the queue manager, restoring the persisted cursor
	queueMgr, err := queue.NewManager(ctx, st, cfg.Queue.RetentionWindow)
	if err != nil {
		return fmt.Errorf("failed to create queue manager: %w", err)
	}
	zlog.Info().Msgf("Queue cursor restored: position=%d", queueMgr.CurrentPosition())

	// Create the playback session
	session := playback.NewSession(queueMgr, audioTransport, playback.Config{
		DisconnectGrace: time.Duration(cfg.Playback.DisconnectGraceMs) * time.Millisecond,
		TickInterval:    time.Duration(cfg.Playback.TickIntervalMs) * time.Millisecond,
	})

	// Create the observer bus and the room facade
	bus := notification.NewBus()
	roomMgr := room.NewManager(queueMgr, session, bus, resolverClient, cfg.Room.Target)

	// Create the API handler
	handler := httpapi.NewHandler(roomMgr, playlist.NewService(st, roomMgr), bus, httpapi.Config{
		AdminToken: cfg.Admin.Token,
	})

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(handler.Mux(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the room first to end playback and drop observers
	roomMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// newTransport builds the configured audio transport.
func newTransport(cfg *config.Config) (playback.Transport, error) {
	switch cfg.Transport.Type {
	case "exec":
		return transport.NewExec(cfg.Transport.Settings)
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Transport.Type)
	}
}
