// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/emilythestrangee/paperboard/backend/internal/database"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

// NewDB returns a migrated, private in-memory SQLite database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	return NewService(t).GetDB()
}

// NewService is NewDB wrapped in the database.Service used by the server.
func NewService(t testing.TB) database.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	svc, err := database.Open(sqlite.Open(dsn), zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)

	sqlDB, err := svc.GetDB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, svc.Migrate(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// CreateUser inserts a user with a unique name and email.
func CreateUser(t testing.TB, db *gorm.DB, name string) models.User {
	t.Helper()

	u := models.User{
		Name:         name,
		Email:        name + "@example.com",
		AuthProvider: "email",
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}
