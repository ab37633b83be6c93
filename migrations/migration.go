package migrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"unique;not null"`
	Batch     int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type MigrationFunc func(*gorm.DB) error

type MigrationDefinition struct {
	Name string
	Up   MigrationFunc
	Down MigrationFunc
}

type Migrator struct {
	db         *gorm.DB
	logger     *slog.Logger
	migrations []MigrationDefinition
}

func NewMigrator(db *gorm.DB, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	return &Migrator{
		db:         db,
		logger:     logger,
		migrations: []MigrationDefinition{},
	}, nil
}

func (m *Migrator) AddMigration(migration MigrationDefinition) {
	m.migrations = append(m.migrations, migration)
}

// Migrate runs every pending migration as one new batch. Each migration
// commits on its own, so a failure keeps the ones before it.
func (m *Migrator) Migrate(ctx context.Context) error {
	m.logger.Info("running database migrations")

	batch, err := m.latestBatch(ctx)
	if err != nil {
		return err
	}
	batch++

	applied := 0
	for _, migration := range m.migrations {
		ran, err := m.hasRun(ctx, migration.Name)
		if err != nil {
			return err
		}
		if ran {
			continue
		}

		m.logger.Info("migrating", "name", migration.Name)
		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %s failed: %w", migration.Name, err)
			}
			if err := tx.Create(&Migration{Name: migration.Name, Batch: batch}).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		applied++
		m.logger.Info("migrated", "name", migration.Name)
	}

	m.logger.Info("migration completed", "applied", applied)
	return nil
}

// Rollback undoes the latest steps batches, newest migration first.
func (m *Migrator) Rollback(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	m.logger.Info("rolling back migrations", "steps", steps)

	batch, err := m.latestBatch(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < steps && batch > 0; i++ {
		var records []Migration
		if err := m.db.WithContext(ctx).Where("batch = ?", batch).Order("id DESC").Find(&records).Error; err != nil {
			return err
		}

		for _, record := range records {
			migration := m.findMigration(record.Name)
			if migration == nil {
				return fmt.Errorf("migration definition not found: %s", record.Name)
			}
			if migration.Down == nil {
				return fmt.Errorf("rollback not defined for migration: %s", record.Name)
			}

			m.logger.Info("rolling back", "name", record.Name)
			err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := migration.Down(tx); err != nil {
					return fmt.Errorf("rollback failed for %s: %w", record.Name, err)
				}
				if err := tx.Delete(&record).Error; err != nil {
					return fmt.Errorf("failed to remove migration record %s: %w", record.Name, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.logger.Info("rolled back", "name", record.Name)
		}

		batch--
	}

	m.logger.Info("rollback completed")
	return nil
}

// Status lists applied migrations in the order they ran.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	var records []Migration
	if err := m.db.WithContext(ctx).Order("batch ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Pending lists registered migrations that have not run yet.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	var pending []string
	for _, migration := range m.migrations {
		ran, err := m.hasRun(ctx, migration.Name)
		if err != nil {
			return nil, err
		}
		if !ran {
			pending = append(pending, migration.Name)
		}
	}
	return pending, nil
}

func (m *Migrator) hasRun(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&Migration{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Migrator) latestBatch(ctx context.Context) (int, error) {
	var migration Migration
	err := m.db.WithContext(ctx).Order("batch DESC").First(&migration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return migration.Batch, nil
}

func (m *Migrator) findMigration(name string) *MigrationDefinition {
	for i := range m.migrations {
		if m.migrations[i].Name == name {
			return &m.migrations[i]
		}
	}
	return nil
}
