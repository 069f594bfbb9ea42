// Package storetest opens throwaway SQLite databases for tests.
package storetest

import (
	"discuss/config"
	"discuss/internal/infra/db"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// Open returns a migrated database in t's temp dir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := db.Open(&config.Config{
		AppEnv:     "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "discuss.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
