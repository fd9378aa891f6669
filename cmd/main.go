package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"market-chat/api"
	"market-chat/auth"
	"market-chat/contract"
	"market-chat/repositories"
	"market-chat/runtime"
	"market-chat/services"
	"market-chat/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Messaging store
	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	messaging := services.NewMessagingService(conversations, messages, log)

	// The realtime core always talks to the store through its contract.
	// With MESSAGING_API_URL set it uses the remote REST boundary instead
	// of the in-process service.
	var store contract.Store = messaging
	if config.MessagingAPIURL != nil {
		log.Info("Using remote messaging store", "url", *config.MessagingAPIURL)
		store = repositories.NewRemoteStore(*config.MessagingAPIURL, config.StoreTimeout, log)
	}

	// 4. Realtime core
	var tokens *auth.TokenValidator
	if config.JWTSecret != "" {
		tokens = auth.NewTokenValidator(config.JWTSecret)
	}
	registry := runtime.NewRegistry()
	hub := ws.NewHub(log)
	coordinator := runtime.NewCoordinator(log, registry, hub, store)
	wsHandler := ws.NewHandler(log, hub, registry, coordinator, tokens,
		config.ConnectionBufferSize, config.WriteTimeout)

	// 5. HTTP surface
	router := mux.NewRouter()
	router.Handle("/ws", wsHandler)
	api.Register(router, api.NewHandlers(messaging, log), api.Authenticate(tokens))

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting messaging server", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
