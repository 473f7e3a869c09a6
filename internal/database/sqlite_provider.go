package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const memoryDSN = ":memory:"

// SQLite's built-in lower() only folds ASCII. Replacing it makes LOWER()
// agree with Postgres and with strings.ToLower on every connection.
func init() {
	gosqlite.MustRegisterDeterministicScalarFunction("lower", 1, unicodeLower)
}

func unicodeLower(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// SQLiteProvider serves both file backed and in-memory SQLite databases
type SQLiteProvider struct {
	sqlDB  *sql.DB
	gormDB *gorm.DB
	dbType DbType
	logger *zap.Logger
}

func NewSQLiteProvider(config DbProviderConfig, logger *zap.Logger) (*SQLiteProvider, error) {
	path, ok := config.stringDetail("path")
	if !ok {
		return nil, fmt.Errorf("path is required for SQLite provider")
	}
	return openSQLite(path, DbTypeSQLite, logger.Named("sqlite"))
}

// NewMemoryProvider opens a private in-memory database. It is the default
// for local runs and what the tests use.
func NewMemoryProvider(logger *zap.Logger) (*SQLiteProvider, error) {
	return openSQLite(memoryDSN, DbTypeMemory, logger.Named("memory"))
}

// OpenMemory is a shortcut returning a migrated in-memory GORM handle
func OpenMemory() (*gorm.DB, error) {
	p, err := NewMemoryProvider(zap.NewNop())
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), p.DB()); err != nil {
		return nil, err
	}
	return p.DB(), nil
}

func openSQLite(dsn string, dbType DbType, logger *zap.Logger) (*SQLiteProvider, error) {
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// SQLite only supports 1 writer, and every new connection to :memory:
	// would see an empty database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if dbType != DbTypeMemory {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	logger.Info("SQLite provider initialized", zap.String("dsn", dsn))
	return &SQLiteProvider{
		sqlDB:  sqlDB,
		gormDB: gormDB,
		dbType: dbType,
		logger: logger,
	}, nil
}

func (p *SQLiteProvider) DB() *gorm.DB { return p.gormDB }

func (p *SQLiteProvider) Type() DbType { return p.dbType }

func (p *SQLiteProvider) Ping(ctx context.Context) error {
	return p.sqlDB.PingContext(ctx)
}

func (p *SQLiteProvider) Close() error {
	return p.sqlDB.Close()
}
