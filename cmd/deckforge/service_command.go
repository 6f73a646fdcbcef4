package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "deckforge"

// apiProgram runs the API server under the system service manager.
type apiProgram struct {
	ctx  *commandContext
	addr string

	cancel context.CancelFunc
	done   chan error
}

func (p *apiProgram) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	sess, err := p.ctx.open(ctx)
	if err != nil {
		cancel()
		return err
	}

	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		defer sess.close()
		err := sess.Serve(ctx, p.ctx.serveOptions(sess, p.addr))
		if err != nil {
			sess.Logger.Error("API server stopped", zap.Error(err))
		}
		p.done <- err
	}()
	return nil
}

func (p *apiProgram) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed service. The service runs
// "deckforge service run" with the flags in effect at install time.
func (c *commandContext) serviceConfig(addr string) (*service.Config, error) {
	args := []string{"service", "run"}
	if c.configFlag != "" {
		path, err := filepath.Abs(c.configFlag)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", path)
	}
	if c.dbFlag != "" {
		path, err := filepath.Abs(c.dbFlag)
		if err != nil {
			return nil, err
		}
		args = append(args, "--db-path", path)
	}
	if c.offline {
		args = append(args, "--offline")
	}
	if addr != "" {
		args = append(args, "--addr", addr)
	}

	return &service.Config{
		Name:        serviceName,
		DisplayName: "Deckforge API",
		Description: "Serves the deckforge deck editing API on the local machine",
		Arguments:   args,
	}, nil
}

func newServiceCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the API server as a system service",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "Listen address, overriding the config file")

	newService := func() (service.Service, *service.Config, error) {
		cfg, err := ctx.serviceConfig(addr)
		if err != nil {
			return nil, nil, err
		}
		s, err := service.New(&apiProgram{ctx: ctx, addr: addr}, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create service: %w", err)
		}
		return s, cfg, nil
	}

	action := func(use, short, done string, run func(service.Service) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, _, err := newService()
				if err != nil {
					return err
				}
				if err := run(s); err != nil {
					return fmt.Errorf("failed to %s service: %w", use, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("install", "Install the API as a system service", "Service installed", service.Service.Install),
		action("uninstall", "Remove the system service", "Service uninstalled", service.Service.Uninstall),
		action("start", "Start the system service", "Service started", service.Service.Start),
		action("stop", "Stop the system service", "Service stopped", service.Service.Stop),
		action("restart", "Restart the system service", "Service restarted", service.Service.Restart),
		&cobra.Command{
			Use:   "status",
			Short: "Show the system service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, cfg, err := newService()
				if err != nil {
					return err
				}
				status, err := s.Status()
				if err != nil {
					return fmt.Errorf("failed to get service status: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.Name, statusText(status))
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager",
			Hidden: true,
			Args:   cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, _, err := newService()
				if err != nil {
					return err
				}
				return s.Run()
			},
		},
	)
	return cmd
}

func statusText(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
