/*
main.go - Server entry point

PURPOSE:
  Wires configuration, storage, and the HTTP layer together and runs
  the server with graceful shutdown.

CONFIGURATION (flags override environment, .env loaded first):
  -port / PORT            HTTP listen port (default 8080)
  -db   / SQLITE_PATH     SQLite database path (default attendance.db)
  -database-url / DATABASE_URL
                          Postgres connection string; when set, Postgres
                          is used instead of SQLite
  -dev                    Development logger (human-readable output)

STORAGE SELECTION:
  DATABASE_URL set   -> store/postgres (pgx pool)
  otherwise          -> store/sqlite (embedded, WAL mode)

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/store/postgres"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real environment win.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("SQLITE_PATH", "attendance.db"), "SQLite database path")
	databaseURL := flag.String("database-url", envStr("DATABASE_URL", ""), "Postgres connection string (overrides SQLite)")
	dev := flag.Bool("dev", false, "development logger output")
	flag.Parse()

	logger := newLogger(*dev)
	defer logger.Sync()

	ctx := context.Background()

	var backend api.Backend
	switch {
	case *databaseURL != "":
		store, err := postgres.New(ctx, *databaseURL)
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer store.Close()
		backend = store
		logger.Info("storage ready", zap.String("backend", "postgres"))
	default:
		store, err := sqlite.New(*dbPath)
		if err != nil {
			logger.Fatal("sqlite init failed", zap.Error(err))
		}
		defer store.Close()
		backend = store
		logger.Info("storage ready", zap.String("backend", "sqlite"), zap.String("path", *dbPath))
	}

	handler := api.NewHandler(backend, logger)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
