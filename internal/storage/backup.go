package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Backup file extensions.
const (
	plainBackupExt  = ".db"
	sealedBackupExt = ".dfbak"
)

// BackupOptions controls Service.Backup.
type BackupOptions struct {
	// Dir receives the backup. Defaults to BackupDir of the database.
	Dir string

	// Name is the file name without extension. Defaults to a timestamp.
	Name string

	// Password seals the backup with AES-256-GCM when set.
	Password string

	// KeyParams overrides DefaultKeyParams for sealed backups.
	KeyParams *KeyParams
}

// BackupInfo describes a backup file.
type BackupInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
	Sealed   bool      `json:"sealed"`
	Checksum string    `json:"checksum"`
	Decks    int       `json:"decks,omitempty"` // Set by Backup only
}

// BackupDir returns the default backup directory for the database at dbPath.
func BackupDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "backups")
}

// Backup writes a consistent snapshot of the database with VACUUM INTO and
// checks it before handing it out. Writers are not blocked while the
// snapshot is taken.
func (s *Service) Backup(ctx context.Context, opts BackupOptions) (*BackupInfo, error) {
	dir := opts.Dir
	if dir == "" {
		if s.db.Path() == ":memory:" {
			return nil, errors.New("in-memory database needs a backup directory")
		}
		dir = BackupDir(s.db.Path())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = "deckforge_" + s.now().Format("20060102_150405")
	}

	snapshot := filepath.Join(dir, name+plainBackupExt+".tmp")
	_ = os.Remove(snapshot)
	if _, err := s.db.Conn().ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}
	defer os.Remove(snapshot)

	decks, err := verifySnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	dest := filepath.Join(dir, name+plainBackupExt)
	if opts.Password == "" {
		if err := os.Rename(snapshot, dest); err != nil {
			return nil, fmt.Errorf("failed to store backup: %w", err)
		}
	} else {
		dest = filepath.Join(dir, name+sealedBackupExt)
		params := DefaultKeyParams
		if opts.KeyParams != nil {
			params = *opts.KeyParams
		}
		if err := sealFile(snapshot, dest, opts.Password, params); err != nil {
			return nil, err
		}
	}

	info, err := backupInfo(dest)
	if err != nil {
		return nil, err
	}
	info.Decks = decks
	return info, nil
}

// ListBackups returns the backups in dir, newest first. A missing directory
// has no backups.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != plainBackupExt && ext != sealedBackupExt) {
			continue
		}
		info, err := backupInfo(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		backups = append(backups, *info)
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return backups, nil
}

// RestoreBackup replaces the database at dbPath with a backup. The database
// must not be open. The replaced file is kept beside it with an ".old"
// suffix. Sealed backups need their password.
func RestoreBackup(ctx context.Context, backupPath, dbPath, password string) (string, error) {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to read backup: %w", err)
	}
	if isSealed(data) {
		if password == "" {
			return "", errors.New("backup is sealed; a password is required")
		}
		if data, err = unseal(data, password); err != nil {
			return "", err
		}
	}

	staged := dbPath + ".restore.tmp"
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage restore: %w", err)
	}
	if _, err := verifySnapshot(ctx, staged); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	var old string
	if _, err := os.Stat(dbPath); err == nil {
		old = dbPath + ".old." + time.Now().Format("20060102_150405")
		if err := os.Rename(dbPath, old); err != nil {
			_ = os.Remove(staged)
			return "", fmt.Errorf("failed to move current database aside: %w", err)
		}
		for _, suffix := range []string{"-wal", "-shm"} {
			if _, err := os.Stat(dbPath + suffix); err == nil {
				_ = os.Rename(dbPath+suffix, old+suffix)
			}
		}
	}

	if err := os.Rename(staged, dbPath); err != nil {
		return "", fmt.Errorf("failed to replace database: %w", err)
	}
	return old, nil
}

// verifySnapshot checks the integrity of the database file at path and
// returns how many decks it holds.
func verifySnapshot(ctx context.Context, path string) (int, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return 0, fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(result, "ok") {
		return 0, fmt.Errorf("integrity check: %s", result)
	}

	var decks int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks`).Scan(&decks); err != nil {
		return 0, fmt.Errorf("not a deck database: %w", err)
	}
	return decks, nil
}

func sealFile(src, dest, password string, params KeyParams) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	sealed, err := seal(plaintext, password, params)
	if err != nil {
		return fmt.Errorf("failed to seal backup: %w", err)
	}
	if err := os.WriteFile(dest, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func backupInfo(path string) (*BackupInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sum, err := checksum(path)
	if err != nil {
		return nil, err
	}
	return &BackupInfo{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     st.Size(),
		ModTime:  st.ModTime(),
		Sealed:   filepath.Ext(path) == sealedBackupExt,
		Checksum: sum,
	}, nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
