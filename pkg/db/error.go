package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
)

// duplicateKeyMessages covers drivers that surface unique violations only
// as text: postgres without pgconn, MySQL 1062 and SQLite 2067.
var duplicateKeyMessages = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
}

// IsDuplicateKeyErr reports a unique constraint violation. Reward evidence
// rows rely on it to turn a concurrent duplicate claim into a conflict.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation {
		return true
	}
	msg := err.Error()
	for _, needle := range duplicateKeyMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// IsSerializationErr reports a postgres serialization failure that is safe
// to retry.
func IsSerializationErr(err error) bool {
	return pgCode(err) == pgSerializationFailure
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
