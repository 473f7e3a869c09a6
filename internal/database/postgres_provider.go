package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresProvider struct {
	sqlDB  *sql.DB
	gormDB *gorm.DB
	logger *zap.Logger
}

// NewPostgresProvider opens the connection through lib/pq and hands the pool
// to GORM.
func NewPostgresProvider(config DbProviderConfig, logger *zap.Logger) (*PostgresProvider, error) {
	pgLogger := logger.Named("postgres")

	connStr, ok := config.stringDetail("conn_str")
	if !ok {
		return nil, fmt.Errorf("conn_str is required for Postgres provider")
	}
	pgLogger.Info("initializing Postgres provider")

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		pgLogger.Error("failed to open Postgres connection", zap.Error(err))
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.intDetail("max_open_conns", 10))
	sqlDB.SetMaxIdleConns(config.intDetail("max_idle_conns", 5))
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		pgLogger.Error("failed to ping Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	pgLogger.Info("Postgres provider initialized successfully")
	return &PostgresProvider{
		sqlDB:  sqlDB,
		gormDB: gormDB,
		logger: pgLogger,
	}, nil
}

func (p *PostgresProvider) DB() *gorm.DB { return p.gormDB }

func (p *PostgresProvider) Type() DbType { return DbTypePostgres }

func (p *PostgresProvider) Ping(ctx context.Context) error {
	return p.sqlDB.PingContext(ctx)
}

func (p *PostgresProvider) Close() error {
	return p.sqlDB.Close()
}
