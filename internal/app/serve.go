package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/api"
	"github.com/ramonehamilton/deckforge/internal/config"
)

// ServeOptions configures Serve.
type ServeOptions struct {
	Addr string // Defaults to the configured API address

	// ConfigPath, when set together with OnReload, is watched for changes.
	ConfigPath string
	OnReload   func(*config.Config)

	// Started receives the bound address once the server listens.
	Started func(addr string)
}

// Serve runs the HTTP API until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	addr := opts.Addr
	if addr == "" {
		addr = a.Config.Addr()
	}

	server := api.NewServer(&api.Config{
		Addr:           addr,
		AllowedOrigins: a.Config.API.AllowedOrigins,
		Logger:         a.Logger,
	}, a.Editor, a.Editor.Prices())

	observer := server.NewWebSocketObserver()
	a.Events.Register(observer)
	defer a.Events.Unregister(observer)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	a.Logger.Info("deckforge API running",
		zap.String("addr", server.Addr()),
		zap.String("database", a.Config.Storage.Path))
	if opts.Started != nil {
		opts.Started(server.Addr())
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if opts.ConfigPath == "" || opts.OnReload == nil {
			return
		}
		if err := config.Watch(watchCtx, opts.ConfigPath, opts.OnReload); err != nil {
			a.Logger.Warn("config watch stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stopWatch()
	<-watchDone
	a.Logger.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
