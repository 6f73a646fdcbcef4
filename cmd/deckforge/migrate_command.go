package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckforge/internal/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withMigrations(func(mm *storage.MigrationManager) error {
					if err := mm.Up(); err != nil {
						return err
					}
					return printVersion(cmd, mm)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withMigrations(func(mm *storage.MigrationManager) error {
					if err := mm.Steps(-1); err != nil {
						return err
					}
					return printVersion(cmd, mm)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withMigrations(func(mm *storage.MigrationManager) error {
					return printVersion(cmd, mm)
				})
			},
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return ctx.withMigrations(func(mm *storage.MigrationManager) error {
					if err := mm.Goto(uint(v)); err != nil {
						return err
					}
					return printVersion(cmd, mm)
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without migrating",
			Long:  "Set the recorded schema version and clear the dirty flag after a failed migration.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return ctx.withMigrations(func(mm *storage.MigrationManager) error {
					if err := mm.Force(v); err != nil {
						return err
					}
					return printVersion(cmd, mm)
				})
			},
		},
	)
	return cmd
}

func (c *commandContext) withMigrations(fn func(*storage.MigrationManager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Path == ":memory:" {
		return errors.New("migrations need a database file")
	}

	// Opening without migrating creates the file and its directory.
	dbConfig := storage.DefaultConfig(cfg.Storage.Path)
	db, err := storage.Open(dbConfig)
	if err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}

	mm, err := storage.NewMigrationManager(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer mm.Close()
	return fn(mm)
}

func printVersion(cmd *cobra.Command, mm *storage.MigrationManager) error {
	v, dirty, err := mm.Version()
	if err != nil {
		return err
	}
	state := ""
	if dirty {
		state = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", v, state)
	return nil
}
