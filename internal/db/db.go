package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gipity/gipity-scaffold/internal/model"
)

// Open returns the process-wide privileged GORM handle. The connection bypasses
// row-level policies; every repository query filters by owner explicitly.
// It is safe for concurrent use and is constructed once in main.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Schema records optional columns detected in the live database.
type Schema struct {
	// UserNames is true when users carries first_name and last_name.
	UserNames bool
}

// DetectSchema inspects the users table once so repositories can pick a column
// set up front instead of retrying reads against an older schema.
func DetectSchema(db *gorm.DB) Schema {
	m := db.Migrator()
	return Schema{
		UserNames: m.HasColumn(&model.User{}, "first_name") && m.HasColumn(&model.User{}, "last_name"),
	}
}
