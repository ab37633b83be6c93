package migrations

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"core/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "migrations.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrateAndRollback(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	Register(m)

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, m.Migrate(ctx))
	for _, table := range []string{"teams", "criteria", "rounds", "score_sheets", "score_entries", "round_results"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// A second run applies nothing.
	require.NoError(t, m.Migrate(ctx))
	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Batch)

	require.NoError(t, m.Rollback(ctx, 1))
	assert.False(t, db.Migrator().HasTable("score_entries"))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestRollbackWithoutDown(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	m.AddMigration(MigrationDefinition{
		Name: "noop",
		Up:   func(*gorm.DB) error { return nil },
	})

	require.NoError(t, m.Migrate(ctx))
	assert.ErrorContains(t, m.Rollback(ctx, 1), "rollback not defined")
}

type schemaObject struct {
	Type string
	Name string
	SQL  string
}

func sqliteSchema(t *testing.T, db *gorm.DB) []schemaObject {
	t.Helper()
	var objects []schemaObject
	require.NoError(t, db.Raw(
		`SELECT type, name, sql FROM sqlite_master
		WHERE sql IS NOT NULL AND name NOT IN ('migrations', 'sqlite_sequence')
		ORDER BY name`,
	).Scan(&objects).Error)
	for i := range objects {
		objects[i].SQL = strings.Join(strings.Fields(objects[i].SQL), " ")
	}
	return objects
}

// The core packages build their test databases from models.SchemaStatements.
// Both must produce the same tables and indexes.
func TestMigrationMatchesModelSchema(t *testing.T) {
	migrated := openSQLite(t)
	m, err := NewMigrator(migrated, nil)
	require.NoError(t, err)
	Register(m)
	require.NoError(t, m.Migrate(context.Background()))

	snapshot := openSQLite(t)
	for _, stmt := range models.SchemaStatements("sqlite") {
		require.NoError(t, snapshot.Exec(stmt).Error)
	}

	want := sqliteSchema(t, snapshot)
	require.Len(t, want, len(models.SchemaStatements("sqlite")))
	assert.Equal(t, want, sqliteSchema(t, migrated))
}
