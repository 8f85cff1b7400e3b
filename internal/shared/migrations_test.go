package shared

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT scope, account FROM tokens LIMIT 1"); err != nil {
			t.Errorf("tokens table should exist with account column: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT account FROM tokens LIMIT 1"); err == nil {
			t.Error("expected account column to be dropped after rollback")
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback first migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM tokens LIMIT 1"); err == nil {
			t.Error("expected tokens table to be dropped")
		}

		if err := RollbackMigration(db); !errors.Is(err, ErrNoMigrations) {
			t.Errorf("expected ErrNoMigrations when nothing is left to roll back, got %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("OpenCache", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "cache.db")
		db, err := OpenCache(CacheConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1})
		if err != nil {
			t.Fatalf("failed to open cache: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("SELECT 1 FROM tokens LIMIT 1"); err != nil {
			t.Errorf("expected tokens table: %v", err)
		}
	})

	t.Run("ResetDatabase", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO tokens (id, scope, access_token, created_at, updated_at)
			VALUES ('1', 'user-read-email', 'a', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`); err != nil {
			t.Fatalf("failed to insert token: %v", err)
		}

		if err := ResetDatabase(db); err != nil {
			t.Fatalf("failed to reset database: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count); err != nil {
			t.Fatalf("expected tokens table after reset: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty tokens table, got %d rows", count)
		}
		if _, err := db.Exec("SELECT account FROM tokens LIMIT 1"); err != nil {
			t.Errorf("expected every migration to be reapplied: %v", err)
		}
	})

	t.Run("ResetDatabase On Empty Database", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := ResetDatabase(db); err != nil {
			t.Fatalf("failed to reset database: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM tokens LIMIT 1"); err != nil {
			t.Errorf("expected tokens table: %v", err)
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nCREATE TABLE t (id INT); -- trailing\n\n")
		if got != "CREATE TABLE t (id INT);" {
			t.Errorf("unexpected result %q", got)
		}
	})
}
