package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var dir, password string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore the deck database",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Backup directory (default: backups beside the database)")
	cmd.PersistentFlags().StringVar(&password, "password", "", "Seal or open backups with a password (or set "+config.EnvBackupPassword+")")

	backupPassword := func() string {
		if password != "" {
			return password
		}
		return os.Getenv(config.EnvBackupPassword)
	}
	backupDir := func(cfg *config.Config) string {
		if dir != "" {
			return dir
		}
		return storage.BackupDir(cfg.Storage.Path)
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Write a snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, s *session) error {
				info, err := s.Storage.Backup(c, storage.BackupOptions{
					Dir:      dir,
					Name:     name,
					Password: backupPassword(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d decks to %s (%s)\n", info.Decks, info.Path, humanize.Bytes(uint64(info.Size)))
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Backup file name without extension")

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backups, err := storage.ListBackups(backupDir(cfg))
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups")
				return nil
			}
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{
					b.Name,
					humanize.Bytes(uint64(b.Size)),
					humanize.Time(b.ModTime),
					strconv.FormatBool(b.Sealed),
					b.Checksum[:12],
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Size", "Taken", "Sealed", "SHA-256"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				nil,
			))
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <backup file>",
		Short: "Replace the database with a backup",
		Long:  "Replace the database with a backup. The current database is kept beside it with an .old suffix. Stop any running server first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Path == ":memory:" {
				return errors.New("cannot restore into an in-memory database")
			}
			old, err := storage.RestoreBackup(cmd.Context(), args[0], cfg.Storage.Path, backupPassword())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", cfg.Storage.Path)
			if old != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Previous database kept at %s\n", old)
			}
			return nil
		},
	}

	cmd.AddCommand(create, list, restore)
	return cmd
}
