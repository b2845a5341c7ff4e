package db

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// GetInstance opens the process-wide database once and exits on failure.
func GetInstance(dialector gorm.Dialector) *DB {
	once.Do(func() {
		var err error
		if instance, err = Open(dialector); err != nil {
			log.Fatal("Failed to open database: ", err)
		}
	})
	return instance
}

// Open connects, migrates the schema and bootstraps the default group. Safe to
// call against an already-migrated database.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLogger()

	logLevel := gormLogger.Warn
	if common.IsTestEnv() {
		logLevel = gormLogger.Silent
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if isSharedMemory(dialector) {
		// one connection keeps every session on the same in-memory database
		// and serializes writers without relying on shared-cache table locks
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := conn.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed")

	instance := &DB{Conn: conn}
	if _, err := instance.EnsureDefaultGroup(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to bootstrap default group: %w", err)
	}

	return instance, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Health(ctx context.Context) error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureDefaultGroup creates the group unassigned devices fall back to. It is
// idempotent and may run on every start.
func (d *DB) EnsureDefaultGroup(ctx context.Context) (*models.Group, error) {
	return DefaultGroup(d.Conn.WithContext(ctx))
}

// DefaultGroup get-or-creates the default group on conn, which may be a
// transaction.
func DefaultGroup(conn *gorm.DB) (*models.Group, error) {
	group, _, err := GetOrCreate(conn,
		func(tx *gorm.DB) *gorm.DB { return tx.Where("name = ?", common.DefaultGroupName) },
		func() *models.Group {
			return &models.Group{
				Name:        common.DefaultGroupName,
				Description: common.DefaultGroupDescription,
				IsDefault:   true,
			}
		},
	)
	return group, err
}

const sqliteParams = "_foreign_keys=on&_busy_timeout=5000"

func UseSqliteDialector(path string) gorm.Dialector {
	if path == "" {
		path = "greenhouse.db"
	}
	// immediate transactions take the write lock at BEGIN so concurrent
	// ingests queue on the busy timeout instead of failing at upgrade time
	return sqlite.Open(fmt.Sprintf("file:%s?%s&_txlock=immediate&_journal_mode=WAL", path, sqliteParams))
}

const memoryDSN = "file::memory:?cache=shared&" + sqliteParams

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(memoryDSN)
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func isSharedMemory(dialector gorm.Dialector) bool {
	d, ok := dialector.(*sqlite.Dialector)
	return ok && d.DSN == memoryDSN
}
