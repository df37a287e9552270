package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"youcube/contract"
	"youcube/domain"
	"youcube/infrastructure/storage"
	"youcube/infrastructure/ws"
	"youcube/internal"
	"youcube/resolver"
	"youcube/runtime"
	"youcube/runtime/workers"
	"youcube/services"
	"youcube/transcode"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	if err := os.MkdirAll(config.DataFolder, 0o755); err != nil {
		return exitConfig, fmt.Errorf("data folder %s: %w", config.DataFolder, err)
	}

	// 2. Asset index (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	assets := storage.NewAssetRepository(db, log)

	// 3. External tools & resolvers
	for _, tool := range transcode.MissingTools(config.FFmpegPath, config.SanjuuniPath, config.YtDlpPath) {
		log.Warn("Tool not found in PATH, media requests will fail", "tool", tool)
	}

	var urlResolver contract.URLResolver = resolver.Disabled{}
	if config.SpotifyEnabled() {
		urlResolver = resolver.NewSpotifyResolver(log, config.SpotifyClientID, config.SpotifyClientSecret)
		log.Info("Spotify support enabled")
	} else {
		log.Info("Spotify support disabled, SPOTIPY_CLIENT_ID and SPOTIPY_CLIENT_SECRET are not set")
	}

	pipeline := transcode.NewPipeline(log, config.Transcode(), assets, urlResolver, transcode.NewExecRunner(log))

	// 4. Background downloads under supervision
	runner := runtime.NewTaskRunner(log, config.DownloadQueueSize, config.DownloadTimeout)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(runner.Workers(pipeline, config.DownloadWorkers)...).
		Add(workers.NewJanitorWorker(log, config.DataFolder, config.CleanupInterval, config.StaleAfter()))

	// 5. Protocol & transport
	store := storage.NewChunkStore(log, config.DataFolder, domain.ChunkSize, domain.FramesPerRequest)
	dispatcher := services.NewDispatcher(log, store, runner)
	server := ws.NewServer(log, dispatcher, config.Server())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:        config.Address(),
		Handler:     server.Routes(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	servers := []*http.Server{httpServer}

	g.Go(func() error {
		sup.Run(ctx)
		return nil
	})

	g.Go(func() error {
		log.Info("Starting websocket server",
			"address", config.Address(),
			"version", domain.ServerVersion,
			"fast", !config.NoFast,
			"at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})

	if config.DebugPort > 0 {
		stats := func() map[string]any {
			return map[string]any{
				"Workers":     config.DownloadWorkers,
				"Queued":      runner.Pending(),
				"Queue size":  config.DownloadQueueSize,
				"Server":      domain.ServerVersion,
				"Rendered at": time.Now().Format(time.RFC822),
			}
		}
		debugServer := internal.NewDebugServer(log, config.DebugPort, assets, stats)
		servers = append(servers, debugServer)
		g.Go(func() error {
			log.Info("Starting debug server", "address", debugServer.Addr)
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
		sup.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
