package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaibs3/careportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProviderFactory defines the interface for creating database providers
type ProviderFactory interface {
	CreateProvider(configJSON string) (Provider, error)
}

// DbProviderFactory implements ProviderFactory
type DbProviderFactory struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

func NewDbProviderFactory(logger *zap.Logger, tel *telemetry.Telemetry) *DbProviderFactory {
	return &DbProviderFactory{
		logger:    logger.Named("factory"),
		telemetry: tel,
	}
}

func (f *DbProviderFactory) CreateProvider(configJSON string) (Provider, error) {
	var config DbProviderConfig

	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse database configuration JSON: %w", err)
	}
	config.DbType = DbType(strings.ToLower(string(config.DbType)))

	// extra_details may carry credentials, only the type is logged
	f.logger.Info("creating database provider", zap.String("db_type", config.DbType.String()))

	if !config.DbType.IsValid() {
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}

	var (
		provider Provider
		err      error
	)
	switch config.DbType {
	case DbTypePostgres:
		provider, err = NewPostgresProvider(config, f.logger)
	case DbTypeSQLite:
		provider, err = NewSQLiteProvider(config, f.logger)
	case DbTypeMemory:
		f.logger.Info("using in-memory SQLite for DB, data is lost on restart")
		provider, err = NewMemoryProvider(f.logger)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}
	if err != nil {
		return nil, err
	}

	f.observePool(provider)
	return provider, nil
}

// observePool publishes connection pool stats as observable gauges
func (f *DbProviderFactory) observePool(provider Provider) {
	if f.telemetry == nil {
		return
	}
	sqlDB, err := provider.DB().DB()
	if err != nil {
		f.logger.Warn("pool metrics unavailable", zap.Error(err))
		return
	}

	attrs := metric.WithAttributes(attribute.String("db_type", provider.Type().String()))
	open, err := f.telemetry.Meter.Int64ObservableGauge("careportal_db_open_connections",
		metric.WithDescription("Open database connections"))
	if err != nil {
		f.logger.Warn("failed to create pool gauge", zap.Error(err))
		return
	}
	inUse, err := f.telemetry.Meter.Int64ObservableGauge("careportal_db_in_use_connections",
		metric.WithDescription("Database connections currently in use"))
	if err != nil {
		f.logger.Warn("failed to create pool gauge", zap.Error(err))
		return
	}

	_, err = f.telemetry.Meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(open, int64(stats.OpenConnections), attrs)
		o.ObserveInt64(inUse, int64(stats.InUse), attrs)
		return nil
	}, open, inUse)
	if err != nil {
		f.logger.Warn("failed to register pool callback", zap.Error(err))
	}
}
