package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/app"
	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/logging"
)

type commandContext struct {
	configFlag string
	dbFlag     string
	offline    bool
	verbose    bool

	configOnce sync.Once
	configPath string
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		config.LoadEnvFiles()

		path := strings.TrimSpace(c.configFlag)
		if path == "" {
			p, err := config.Path()
			if err != nil {
				c.configErr = err
				return
			}
			path = p
		}
		cfg, err := config.LoadFrom(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.dbFlag != "" {
			cfg.Storage.Path = c.dbFlag
		}
		if c.verbose {
			cfg.Log.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.configPath = path
		c.config = cfg
	})
	return c.config, c.configErr
}

// session is an opened application plus the logging handle that goes with it.
type session struct {
	*app.App
	logs *logging.Handle
}

func (c *commandContext) open(ctx context.Context) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, handle, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a, err := app.Open(ctx, cfg, logger, app.Options{Offline: c.offline, VerboseEvents: c.verbose})
	if err != nil {
		handle.Close()
		return nil, err
	}
	return &session{App: a, logs: handle}, nil
}

func (s *session) close() {
	if err := s.App.Close(); err != nil {
		s.Logger.Warn("failed to close database", zap.Error(err))
	}
	s.logs.Close()
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

// resolveDeckID accepts a deck ID or a deck name, ignoring case.
func resolveDeckID(ctx context.Context, s *session, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	decks, err := s.Editor.ListDecks(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, d := range decks {
		if d.ID == ref {
			return d.ID, nil
		}
		if strings.EqualFold(d.Name, ref) {
			matches = append(matches, d.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no deck named %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d decks are named %q; use the deck id", len(matches), ref)
	}
}
