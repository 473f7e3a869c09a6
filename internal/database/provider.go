package database

import (
	"context"

	"gorm.io/gorm"
)

// Provider is an opened database backend
type Provider interface {
	DB() *gorm.DB
	Type() DbType
	Ping(ctx context.Context) error
	Close() error
}
