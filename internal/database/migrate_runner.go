package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"clipshare/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MigrationStore records which SQL migrations have run.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, version int, name, sql string) error
	RemoveMigration(ctx context.Context, version int) error
}

// SchemaMigration is one row of schema_migrations.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

const createSchemaMigrationsSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Postgres undefined_table.
const pgUndefinedTable = "42P01"

type migrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

// GetAppliedMigrations returns applied versions in ascending order. A database
// that never ran cmd/migrate has none.
func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&SchemaMigration{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if noMigrationTable(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

func noMigrationTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	// sqlite in tests
	return strings.Contains(err.Error(), "no such table")
}

// ApplyMigration runs sql and records version in the same transaction.
func (s *migrationStore) ApplyMigration(ctx context.Context, version int, name, sql string) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration %06d_%s: %w", version, name, err)
		}
		return tx.Create(&SchemaMigration{Version: version, Name: name}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("Migration applied",
		slog.Int("version", version),
		slog.String("name", name),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *migrationStore) RemoveMigration(ctx context.Context, version int) error {
	if err := s.db.WithContext(ctx).Delete(&SchemaMigration{}, "version = ?", version).Error; err != nil {
		return fmt.Errorf("remove schema_migrations row %d: %w", version, err)
	}
	return nil
}

// RunMigrations applies every embedded migration that has not run yet, in
// version order. It stops at the first failure.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createSchemaMigrationsSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	return applyPending(ctx, store, applied, migrations)
}

func applyPending(ctx context.Context, store MigrationStore, applied []int, registered []Migration) error {
	if err := validateAppliedVersions(applied, registered); err != nil {
		return err
	}

	pending := 0
	for _, m := range registered {
		if slices.Contains(applied, m.Version) {
			continue
		}
		if err := store.ApplyMigration(ctx, m.Version, m.Name, m.UpScript); err != nil {
			return err
		}
		pending++
	}
	if pending == 0 {
		middleware.Logger.Info("Schema is up to date", slog.Int("applied", len(applied)))
	}
	return nil
}

// validateAppliedVersions fails when the database has versions this binary
// does not know, which means it is older than the schema.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range slices.Sorted(slices.Values(applied)) {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version }) {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("schema_migrations has versions unknown to this build: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// RollbackMigration runs the down script of an applied version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	if err := db.WithContext(ctx).Exec(m.DownScript).Error; err != nil {
		return fmt.Errorf("rollback %s: %w", m.String(), err)
	}
	if err := store.RemoveMigration(ctx, version); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", version), slog.String("name", m.Name))
	return nil
}
