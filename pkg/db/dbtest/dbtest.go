// Package dbtest opens isolated in-memory sqlite databases for repository
// tests.
package dbtest

import (
	"testing"

	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated connection private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	return OpenWithHooks(t, nil)
}

// OpenWithHooks behaves like Open and registers hooks on the connection.
func OpenWithHooks(t testing.TB, hooks *db.Hooks) *gorm.DB {
	t.Helper()
	dsn := "file:mapas_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	for _, stmt := range models.ExpressionIndexes() {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create index: %v", err)
		}
	}
	if hooks != nil {
		if err := hooks.Register(conn); err != nil {
			t.Fatalf("register hooks: %v", err)
		}
	}
	return conn
}
