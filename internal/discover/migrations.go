package discover

import (
	"database/sql"

	"github.com/croftlabs/agripulse/pkg/plugin"
)

// migrations returns the Discover module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create discover tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS discover_runs (
						id              TEXT PRIMARY KEY,
						focus_sensor_id TEXT NOT NULL,
						strategies      TEXT NOT NULL DEFAULT '[]',
						status          TEXT NOT NULL DEFAULT 'completed',
						error           TEXT NOT NULL DEFAULT '',
						evaluated       INTEGER NOT NULL DEFAULT 0,
						duration_ms     INTEGER NOT NULL DEFAULT 0,
						created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_discover_runs_focus ON discover_runs(focus_sensor_id)`,
					`CREATE INDEX IF NOT EXISTS idx_discover_runs_created ON discover_runs(created_at)`,

					`CREATE TABLE IF NOT EXISTS discover_candidates (
						run_id      TEXT NOT NULL REFERENCES discover_runs(id) ON DELETE CASCADE,
						sensor_id   TEXT NOT NULL,
						strategy    TEXT NOT NULL,
						rank        INTEGER NOT NULL,
						score       REAL NOT NULL DEFAULT 0,
						score_label TEXT NOT NULL DEFAULT '',
						status      TEXT NOT NULL DEFAULT '',
						badges      TEXT NOT NULL DEFAULT '[]',
						raw_payload TEXT NOT NULL DEFAULT '{}',
						PRIMARY KEY (run_id, strategy, sensor_id)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_discover_candidates_run ON discover_candidates(run_id)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
