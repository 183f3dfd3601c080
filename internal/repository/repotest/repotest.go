// Package repotest opens throwaway SQLite stores seeded with entities.
package repotest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/database"
)

// Open returns a migrated in-memory SQLite database closed with the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   database.DriverSQLite,
		FilePath: ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Seed inserts the entities as live rows.
func Seed(t testing.TB, db *gorm.DB, entities ...domain.Entity) {
	t.Helper()
	for _, e := range entities {
		require.NoError(t, db.Create(domain.ToModel(e)).Error)
	}
}

// SoftDelete marks a row deleted the way the owning service does.
func SoftDelete(t testing.TB, db *gorm.DB, cat domain.Category, id string) {
	t.Helper()
	model, err := domain.NewModel(cat)
	require.NoError(t, err)
	require.NoError(t, db.Where("id = ?", id).Delete(model).Error)
}
