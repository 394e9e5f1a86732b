package db

import (
	"fmt"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the database selected by driver ("postgres" or
// "sqlite").
func ConnectDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
		cfg.DisableForeignKeyConstraintWhenMigrating = true
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	return gorm.Open(dialector, cfg)
}

// HeartbeatTable returns the table holding heartbeats of a monitor type.
func HeartbeatTable(kind types.MonitorType) string {
	return string(kind) + "_heartbeats"
}

func MigrateDatabase(db *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.NotificationGroup{},
		&models.Monitor{},
		&models.SSLMonitor{},
	}

	if err := db.AutoMigrate(tables...); err != nil {
		return err
	}

	// Heartbeat tables share one schema, so their index is created by hand to
	// keep index names unique per table.
	for _, kind := range types.MonitorTypes {
		table := HeartbeatTable(kind)

		if err := db.Table(table).AutoMigrate(&models.Heartbeat{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}

		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_monitor_time ON %s (monitor_id, timestamp)", table, table)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}

	return nil
}
