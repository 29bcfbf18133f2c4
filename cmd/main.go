/*
Package main is the entry point for the real-time learning service.

It is responsible for loading configuration, initializing the global logging
system, wiring the connection registry, room directory, session engine,
notification router, and health monitor together, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) so live connections
drain cleanly.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rktkdduq01/study-app-sub002/internal/app/notify"
	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/session"
	"github.com/rktkdduq01/study-app-sub002/internal/app/storage"
	"github.com/rktkdduq01/study-app-sub002/internal/app/store"
	"github.com/rktkdduq01/study-app-sub002/internal/configs"
	"github.com/rktkdduq01/study-app-sub002/internal/handler"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("max_connections", cfg.MaxConnections).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to the database")
	}
	defer pool.Close()
	pg := store.NewPG(pool)

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Core wiring: registry feeds presence, presence feeds the session
	// engine's forfeit handling and the notifier's friend updates.
	presence := realtime.NewPresenceTracker()
	registry := realtime.NewRegistry(cfg.MaxConnections, presence)
	directory := realtime.NewDirectory(registry)
	engine := session.NewEngine(directory, pg)
	notifier := notify.NewRouter(registry, pg)

	presence.Subscribe(engine.HandlePresence)
	presence.Subscribe(notifier.HandlePresence)

	// A settled session also reaches guardians watching the participants.
	engine.BindCompletionHook(func(result store.SessionResult, snap session.Snapshot) {
		event := realtime.NewEvent(realtime.EventSessionCompleted, snap)
		for _, p := range result.Participants {
			notifier.Route(context.Background(), notify.Notification{
				Event:   event,
				ActorID: p.UserID,
				Derived: []store.RelationshipKind{store.RelParent},
			})
		}
	})

	engine.Start()

	monitor := realtime.NewHealthMonitor(registry, cfg.HeartbeatWarn, cfg.HeartbeatDead, cfg.SweepInterval)
	monitor.Start()

	router := handler.Router(&handler.AppDeps{
		Config:         cfg,
		Registry:       registry,
		Directory:      directory,
		Engine:         engine,
		StorageService: storageService,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Real-time learning service starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server forced to shutdown")
	}

	// Order matters: stop sweeping, cancel waiting sessions, then drain
	// connections with a shutdown notice. In-progress sessions settle as
	// forfeits through the presence cascade before the engine stops.
	monitor.Stop()
	engine.Drain()
	registry.Shutdown(realtime.NewEvent(realtime.EventShutdown, nil))
	engine.Stop()

	logx.Info("Server gracefully stopped.")
}
