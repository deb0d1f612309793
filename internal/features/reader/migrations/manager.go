package migrations

import (
	"context"
	"fmt"

	"feedreader/internal/core"
)

// FeatureName scopes the reader migrations in schema_migrations
const FeatureName = "reader"

// Manager handles reader feature migrations
type Manager struct {
	migrationService *core.MigrationService
	logger           *core.Logger
}

// NewManager creates a new reader migration manager
func NewManager(db *core.Database, logger *core.Logger) *Manager {
	return &Manager{
		migrationService: core.NewMigrationService(db, logger),
		logger:           logger,
	}
}

// Migrations returns all reader migrations in order
func (m *Manager) Migrations() []core.Migration {
	return []core.Migration{
		Migration001CreateReaderTables,
	}
}

// Migrate applies all pending reader migrations
func (m *Manager) Migrate(ctx context.Context) error {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	migrations := m.Migrations()
	m.logger.Info("Starting reader migrations", "count", len(migrations))

	for _, migration := range migrations {
		if err := m.migrationService.ApplyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	m.logger.Info("Reader migrations completed successfully")
	return nil
}

// Rollback rolls back the last applied reader migration
func (m *Manager) Rollback(ctx context.Context) error {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	applied, err := m.migrationService.GetAppliedMigrations(ctx, FeatureName)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	if len(applied) == 0 {
		return fmt.Errorf("no reader migrations have been applied")
	}

	last := applied[len(applied)-1]
	var target *core.Migration
	for _, migration := range m.Migrations() {
		if migration.Version == last.Version {
			target = &migration
			break
		}
	}
	if target == nil {
		return fmt.Errorf("applied migration %d is unknown to this build", last.Version)
	}

	if err := m.migrationService.RollbackMigration(ctx, *target); err != nil {
		return fmt.Errorf("failed to rollback migration %d (%s): %w", target.Version, target.Name, err)
	}

	m.logger.Info("Rolled back reader migration", "version", target.Version, "name", target.Name)
	return nil
}

// Status returns the current migration status
func (m *Manager) Status(ctx context.Context) (*core.MigrationStatus, error) {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return m.migrationService.GetMigrationStatus(ctx, FeatureName)
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (m *Manager) GetPendingMigrations(ctx context.Context) ([]core.Migration, error) {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	applied, err := m.migrationService.GetAppliedMigrations(ctx, FeatureName)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, migration := range applied {
		appliedVersions[migration.Version] = true
	}

	var pending []core.Migration
	for _, migration := range m.Migrations() {
		if !appliedVersions[migration.Version] {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}
