package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/croftlabs/agripulse/pkg/plugin"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMigrations(counter *int) []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create things",
			Up: func(tx *sql.Tx) error {
				*counter++
				_, err := tx.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "add kind column",
			Up: func(tx *sql.Tx) error {
				*counter++
				_, err := tx.Exec(`ALTER TABLE things ADD COLUMN kind TEXT NOT NULL DEFAULT ''`)
				return err
			},
		},
	}
}

func TestMigrate_AppliesOnce(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	applied := 0
	require.NoError(t, s.Migrate(ctx, "testplugin", testMigrations(&applied)))
	require.Equal(t, 2, applied)

	// Re-running is a no-op.
	require.NoError(t, s.Migrate(ctx, "testplugin", testMigrations(&applied)))
	require.Equal(t, 2, applied)

	_, err := s.DB().Exec(`INSERT INTO things (name, kind) VALUES ('pump', 'actuator')`)
	require.NoError(t, err)
}

func TestMigrate_TrackedPerPlugin(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	applied := 0
	mig := []plugin.Migration{{
		Version:     1,
		Description: "noop",
		Up:          func(tx *sql.Tx) error { applied++; return nil },
	}}
	require.NoError(t, s.Migrate(ctx, "alpha", mig))
	require.NoError(t, s.Migrate(ctx, "beta", mig))
	require.Equal(t, 2, applied)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	bad := []plugin.Migration{{
		Version:     1,
		Description: "fails",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE TABLE half_done (id INTEGER)`); err != nil {
				return err
			}
			return boom
		},
	}}
	err := s.Migrate(ctx, "broken", bad)
	require.ErrorIs(t, err, boom)

	// Nothing from the failed migration may persist, and it stays pending.
	var count int
	err = s.DB().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='half_done'`,
	).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)

	applied, err := s.isMigrationApplied(ctx, "broken", 1)
	require.NoError(t, err)
	require.False(t, applied)
}

func TestTx_CommitAndRollback(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	require.NoError(t, s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv (k, v) VALUES ('a', '1')`)
		return err
	}))

	boom := errors.New("boom")
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO kv (k, v) VALUES ('b', '2')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count))
	require.Equal(t, 1, count)
}
