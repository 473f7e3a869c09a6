package database

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pqUniqueViolation = "23505"

// IsDuplicateKey reports whether err is a unique constraint violation. The
// Postgres provider hands GORM a lib/pq pool whose errors GORM cannot
// translate, so those are matched on the SQLSTATE.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
