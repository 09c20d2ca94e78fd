package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parentcompanion/internal/config"
	"parentcompanion/internal/events"
	"parentcompanion/internal/handlers"
	"parentcompanion/internal/models"
	"parentcompanion/internal/remote"
	"parentcompanion/internal/routing"
	"parentcompanion/internal/security"
	"parentcompanion/internal/service"
	"parentcompanion/internal/session"
	"parentcompanion/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	// Open local state (sql, json or redis)
	profileStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer closeStore()

	log.Printf("Local store ready (engine: %s)", cfg.StoreEngine)

	// Session state and observers
	sessionManager := session.NewManager(profileStore)
	defer sessionManager.Close()

	if cfg.Debug {
		sessionManager.Subscribe(session.ObserverFunc(func(change models.AuthChange) {
			log.Printf("[DEBUG] auth change observed: %s -> %s at %s", change.From, change.To, change.At.Format(time.RFC3339))
		}))
	}

	var forwarder *events.AuthStateForwarder
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			events.EventAuthStateChanged: cfg.KafkaTopicAuthState,
		})
		if err != nil {
			log.Fatalf("Failed to create event publisher: %v", err)
		}
		defer publisher.Close()

		installationID, err := profileStore.InstallationID(ctx)
		if err != nil {
			log.Fatalf("Failed to load installation id: %v", err)
		}
		forwarder = events.NewAuthStateForwarder(publisher, installationID, 0)
		sessionManager.Subscribe(forwarder)
		log.Printf("Forwarding auth changes to Kafka topic %s", cfg.KafkaTopicAuthState)
	}

	// Remote profile source; the client timeout is the only fetch timeout
	source := remote.NewHTTPSource(cfg.RemoteBaseURL, cfg.RemoteProfilePath, &http.Client{Timeout: cfg.RemoteTimeout})
	resolver := session.NewResolver(sessionManager, source)

	// Resolve the launch session once
	launch := resolver.ResolveInitialSession(ctx)
	destination := routing.SelectInitialDestination(launch.Profile)
	log.Printf("Initial session resolved (origin: %s, destination: %s)", launch.Origin, destination)

	// Initialize handlers
	profileService := service.NewProfileService(profileStore)
	apiHandler := handlers.NewAPIHandler(sessionManager, resolver, profileService, launch)

	// Limit calls that reach the remote backend
	limiter := security.NewRateLimiter(cfg.RemoteRateLimit, cfg.RemoteRateWindow)
	defer limiter.Stop()

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(apiHandler, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RemoteTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
	if task := resolver.Pending(); task != nil {
		if err := task.Wait(shutdownCtx); errors.Is(err, context.DeadlineExceeded) {
			log.Println("Background profile refresh did not finish before shutdown")
		}
	}
	if forwarder != nil {
		if err := forwarder.Close(shutdownCtx); err != nil {
			log.Printf("Error flushing auth events: %v", err)
		}
	}
}
