package db

import (
	"strings"
	"time"

	"github.com/kiln-build/kiln/internal/models"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TypeSqlite   = "sqlite"
	TypePostgres = "postgres"
)

// Now is the clock gorm uses for automatic timestamps. Times are
// stored in UTC at microsecond precision so sqlite and postgres
// round-trip the same values.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Open connects to the configured database engine.
func Open(databaseType, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: Now,
	}

	switch strings.ToLower(databaseType) {
	case TypePostgres:
		gdb, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to postgres")
		}
		return gdb, nil
	case TypeSqlite, "":
		gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open sqlite database")
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to access sqlite handle")
		}
		// sqlite allows a single writer; serialize in-process access.
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	default:
		return nil, errors.Errorf("unsupported database type %q", databaseType)
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(models.All...); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}
