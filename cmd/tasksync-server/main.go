package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	requireAuth, _ := strconv.ParseBool(os.Getenv("TASKSYNC_REQUIRE_AUTH"))

	if err := logger.Init(logger.Config{
		Level:   logger.ParseLevel(os.Getenv("TASKSYNC_LOG_LEVEL")),
		Console: true,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	var store server.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pg, err := server.OpenPostgres(dbURL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		store = pg
		logger.Info("Using PostgreSQL store")
	} else {
		store = server.NewMemoryStore()
		logger.Info("Using in-memory store")
	}

	srv := server.New(store, server.Options{RequireAuth: requireAuth})
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	log.Printf("TaskSync dev server starting on :%s (auth required: %t)", port, requireAuth)
	if err := srv.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
