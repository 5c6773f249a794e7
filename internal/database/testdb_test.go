package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Address:      "House 1, Street 2",
		Phone:        "03001234567",
		Role:         role,
		PasswordHash: "x",
	}
	if role == models.RoleCustomer {
		u.MeterNo = "M-" + name
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func ptr[T any](v T) *T { return &v }
