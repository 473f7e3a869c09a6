package database

import (
	"context"
	"fmt"

	"github.com/shaibs3/careportal/internal/db_model"
	"gorm.io/gorm"
)

// Models lists every table the service owns
func Models() []interface{} {
	return []interface{}{
		&db_model.Account{},
		&db_model.PasswordResetToken{},
		&db_model.CalendarEvent{},
		&db_model.ArchiveNode{},
	}
}

// Migrate creates or updates the schema. It is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
