package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/app"
	"github.com/ramonehamilton/deckforge/internal/config"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				return s.Serve(c, ctx.serveOptions(s, addr))
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overriding the config file")
	return cmd
}

func (c *commandContext) serveOptions(s *session, addr string) app.ServeOptions {
	return app.ServeOptions{
		Addr:       addr,
		ConfigPath: c.configPath,
		OnReload: func(next *config.Config) {
			if c.verbose {
				return
			}
			if err := s.logs.SetLevel(next.Log.Level); err != nil {
				s.Logger.Warn("ignoring reloaded log level", zap.Error(err))
				return
			}
			s.Logger.Info("configuration reloaded", zap.String("log_level", next.Log.Level))
		},
	}
}
