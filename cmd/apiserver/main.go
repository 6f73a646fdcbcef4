// Package main runs the deckforge REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/app"
	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/logging"
)

var (
	configPath = flag.String("config", "", "Config file (default: ~/.deckforge/config.toml)")
	addr       = flag.String("addr", "", "Listen address, overriding the config file")
	dbPath     = flag.String("db-path", "", "Database path, overriding the config file")
	offline    = flag.Bool("offline", false, "Do not query Scryfall for printings")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnvFiles()

	path := *configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logHandle, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logHandle.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger, app.Options{Offline: *offline})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()

	return a.Serve(ctx, app.ServeOptions{
		Addr:       *addr,
		ConfigPath: path,
		OnReload: func(next *config.Config) {
			if err := logHandle.SetLevel(next.Log.Level); err != nil {
				logger.Warn("ignoring reloaded log level", zap.Error(err))
				return
			}
			logger.Info("configuration reloaded", zap.String("log_level", next.Log.Level))
		},
	})
}
