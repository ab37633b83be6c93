package migrations

import (
	"strings"

	"gorm.io/gorm"
)

// Applied migrations never change. Schema edits go into a new migration.
func GetCoreMigrations() []MigrationDefinition {
	return []MigrationDefinition{
		{
			Name: "2026_10_01_000000_create_judging_tables",
			Up: func(db *gorm.DB) error {
				return execAll(db,
					`CREATE TABLE IF NOT EXISTS teams (
						id {{serial}},
						name VARCHAR(255) NOT NULL UNIQUE,
						project_description TEXT NOT NULL DEFAULT '',
						bio TEXT NOT NULL DEFAULT '',
						logo VARCHAR(512) NOT NULL DEFAULT '',
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE IF NOT EXISTS members (
						id {{serial}},
						team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
						name VARCHAR(255) NOT NULL,
						bio TEXT NOT NULL DEFAULT '',
						photo VARCHAR(512) NOT NULL DEFAULT '',
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_members_team_id ON members(team_id)`,
					`CREATE TABLE IF NOT EXISTS criteria (
						id {{serial}},
						name VARCHAR(255) NOT NULL UNIQUE,
						default_max INTEGER NOT NULL CHECK (default_max > 0),
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					// Round ids are assigned by the engine, not the database.
					`CREATE TABLE IF NOT EXISTS rounds (
						id BIGINT PRIMARY KEY,
						is_first BOOLEAN NOT NULL DEFAULT FALSE,
						is_final BOOLEAN NOT NULL DEFAULT FALSE,
						is_closed BOOLEAN NOT NULL DEFAULT FALSE,
						target_team_count INTEGER NOT NULL DEFAULT 0,
						closed_at TIMESTAMP NULL,
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE IF NOT EXISTS score_sheets (
						id {{serial}},
						round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
						criterion_id BIGINT NOT NULL REFERENCES criteria(id) ON DELETE RESTRICT,
						max_points INTEGER NOT NULL CHECK (max_points > 0),
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_score_sheets_round_criterion ON score_sheets(round_id, criterion_id)`,
					`CREATE TABLE IF NOT EXISTS score_entries (
						id {{serial}},
						score_sheet_id BIGINT NOT NULL REFERENCES score_sheets(id) ON DELETE CASCADE,
						team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
						points INTEGER NOT NULL CHECK (points >= 0),
						created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_score_entries_sheet_team ON score_entries(score_sheet_id, team_id)`,
					`CREATE INDEX IF NOT EXISTS idx_score_entries_team_id ON score_entries(team_id)`,
					`CREATE TABLE IF NOT EXISTS round_results (
						team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
						round_id BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
						rank INTEGER NOT NULL,
						is_in_danger BOOLEAN NOT NULL DEFAULT TRUE,
						average_score INTEGER NOT NULL DEFAULT 0,
						updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (team_id, round_id)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_round_results_round_id ON round_results(round_id)`,
				)
			},
			Down: func(db *gorm.DB) error {
				return execAll(db,
					"DROP TABLE IF EXISTS round_results",
					"DROP TABLE IF EXISTS score_entries",
					"DROP TABLE IF EXISTS score_sheets",
					"DROP TABLE IF EXISTS rounds",
					"DROP TABLE IF EXISTS criteria",
					"DROP TABLE IF EXISTS members",
					"DROP TABLE IF EXISTS teams",
				)
			},
		},
	}
}

// Register adds every known migration to m.
func Register(m *Migrator) {
	for _, migration := range GetCoreMigrations() {
		m.AddMigration(migration)
	}
}

// execAll runs stmts in order. {{serial}} becomes the dialect's
// auto-increment primary key.
func execAll(db *gorm.DB, stmts ...string) error {
	serial := "BIGSERIAL PRIMARY KEY"
	if db.Dialector.Name() != "postgres" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	for _, stmt := range stmts {
		if err := db.Exec(strings.ReplaceAll(stmt, "{{serial}}", serial)).Error; err != nil {
			return err
		}
	}
	return nil
}
