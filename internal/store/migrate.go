package store

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate runs all embedded .sql migrations in order.
func (s *Store) Migrate() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return s.MigrateFS(sub)
}

// MigrateFS runs all .sql files at the root of fsys in lexical order,
// skipping versions already recorded in schema_migrations.
func (s *Store) MigrateFS(fsys fs.FS) error {
	// 1. Create migrations table if not exists to track applied migrations
	_, err := s.DB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	// 2. Read migration files
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".sql") {
			migrationFiles = append(migrationFiles, f.Name())
		}
	}
	sort.Strings(migrationFiles) // Ensure order 001, 002, ...

	// 3. Apply new migrations
	for _, file := range migrationFiles {
		if s.isApplied(file) {
			s.log.Debug("Skipping already applied migration", zap.String("file", file))
			continue
		}

		s.log.Info("Applying migration", zap.String("file", file))
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		tx, err := s.DB.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			// Re-running an ALTER that already landed is not fatal; record it as applied.
			if !strings.Contains(err.Error(), "duplicate column name") && !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("failed to execute migration %s: %w", file, err)
			}
			s.log.Warn("Column likely already exists, marking as applied", zap.String("file", file))
		} else if err := tx.Commit(); err != nil {
			return err
		}

		if _, err := s.DB.Exec(s.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), file); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
	}

	return nil
}

func (s *Store) isApplied(version string) bool {
	var exists int
	err := s.DB.QueryRow(s.rebind(`SELECT 1 FROM schema_migrations WHERE version = ?`), version).Scan(&exists)
	return err == nil
}
