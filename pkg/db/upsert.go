package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxConflictRetries bounds how many times a get-or-create re-reads after
// losing an insert race on its natural key.
const MaxConflictRetries = 1

var ErrConflict = errors.New("natural key conflict not resolved after retry")

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether err is a unique constraint failure from
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsTransient reports lock contention a retried request can get past.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// GetOrCreate looks a row up by its natural key and inserts build() when it is
// missing. The insert is ON CONFLICT DO NOTHING, so a concurrent creator makes
// it a no-op and the row is read back instead; a unique violation is treated
// the same way. created reports whether this call inserted the row.
func GetOrCreate[T any](conn *gorm.DB, lookup func(*gorm.DB) *gorm.DB, build func() *T) (row *T, created bool, err error) {
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		var found T
		err := lookup(conn).Take(&found).Error
		if err == nil {
			return &found, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}

		fresh := build()
		res := createIgnoringConflict(conn, fresh)
		if res.Error != nil {
			if IsUniqueViolation(res.Error) {
				continue
			}
			return nil, false, res.Error
		}
		if res.RowsAffected == 1 {
			return fresh, true, nil
		}
	}
	return nil, false, ErrConflict
}

// ON CONFLICT without a target covers every unique index of the table, so on
// both sqlite and postgres a lost race leaves RowsAffected at 0 instead of
// failing the statement.
func createIgnoringConflict(conn *gorm.DB, value any) *gorm.DB {
	return conn.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
}
