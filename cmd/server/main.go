package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/akozyrev/taskman/internal/auth"
	"github.com/akozyrev/taskman/internal/config"
	"github.com/akozyrev/taskman/internal/database"
	"github.com/akozyrev/taskman/internal/landing"
	"github.com/akozyrev/taskman/internal/logging"
	"github.com/akozyrev/taskman/internal/session"
	"github.com/akozyrev/taskman/internal/templates"
	"github.com/akozyrev/taskman/internal/users"
)

func main() {
	config.LoadConfig()

	logger := logging.New(slog.LevelInfo)

	if err := templates.Setup(); err != nil {
		logger.Error("parse templates", "err", err)
		os.Exit(1)
	}

	// Setup database
	store, err := openStore()
	if err != nil {
		logger.Error("open store", "type", config.Current.Database.Type, "err", err)
		os.Exit(1)
	}

	sessions := session.NewManager(
		store,
		config.Current.Session.CookieName,
		config.Current.Session.TTL,
		logger,
	)

	// Setup routing
	r := mux.NewRouter()
	r.Use(logging.Middleware(logger))
	r.Use(sessions.Middleware())
	landing.SetupRoutes(r, sessions, logger)
	users.SetupRoutes(r, store, sessions, logger)
	auth.SetupRoutes(r, store, sessions, logger)

	addr := config.Current.Server.Addr()
	srv := http.Server{
		Addr:    addr,
		Handler: r,

		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve", "err", err)
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	<-c

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}

	logger.Info("closing database connection...")
	if err := store.Close(); err != nil {
		logger.Error("close store", "err", err)
	}
}

func openStore() (database.Store, error) {
	if config.Current.Database.Type == "sqlite" {
		return database.InitializeSQLDB()
	}
	return database.InitializeBadgerDB(false)
}
