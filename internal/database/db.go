package database

import (
	"fmt"
	"time"

	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects to the configured database, retrying while it comes up,
// then syncs the schema.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	// 1. Pick the dialector
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.LogMode {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// 2. Connect (wait for the DB to be ready)
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warn("failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("backoff", connectBackoff),
			zap.Error(err))
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, err)
	}
	log.Info("connected to database", zap.String("driver", cfg.Driver))

	// 3. Auto-Migrate
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := MigrateRoles(db); err != nil {
		return nil, err
	}
	log.Info("database schema synced")

	return db, nil
}

// AutoMigrate creates or alters the tables for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Settings{},
		&models.Bill{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// MigrateRoles rewrites roles stored as legacy integer codes to their names.
func MigrateRoles(db *gorm.DB) error {
	legacy := map[string]models.Role{
		"1": models.RoleAdmin,
		"2": models.RoleCustomer,
		"3": models.RoleMeterReader,
	}
	for code, role := range legacy {
		err := db.Model(&models.User{}).
			Where("role = ?", code).
			Update("role", role).Error
		if err != nil {
			return fmt.Errorf("migrate role %s: %w", code, err)
		}
	}
	return nil
}
