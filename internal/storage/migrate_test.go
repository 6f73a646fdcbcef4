package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latestSchemaVersion = 2

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var n int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrationManager_Up(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	require.NoError(t, err)
	require.NoError(t, mgr.Up())
	require.NoError(t, mgr.Close())

	mgr2, err := NewMigrationManager(dbPath)
	require.NoError(t, err)
	defer mgr2.Close()

	version, dirty, err := mgr2.Version()
	require.NoError(t, err)
	assert.False(t, dirty, "database is dirty after migrations")
	assert.EqualValues(t, latestSchemaVersion, version)

	// A second Up is a no-op.
	assert.NoError(t, mgr2.Up())
}

func TestMigrationManager_DownAndSteps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "steps-test.db")

	mgr, err := NewMigrationManager(dbPath)
	require.NoError(t, err)
	defer mgr.Close()

	require.NoError(t, mgr.Steps(1))
	version, _, err := mgr.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	require.NoError(t, mgr.Goto(latestSchemaVersion))
	require.NoError(t, mgr.Down())

	version, _, err = mgr.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 0, version, "Down rolls back every migration")
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	config := DefaultConfig(":memory:")
	config.AutoMigrate = true

	db, err := Open(config)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"decks", "deck_cards", "printing_preferences", "printing_cache"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	// The shared migration manager must leave the connection usable.
	assert.NoError(t, db.Ping())
}

func TestMigrate_Idempotent(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "twice.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "deck_cards"))
}
