package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a point lookup matches no row.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = eris.New("store: unique constraint violation")
	// ErrForeignKey is returned when an insert references a missing row.
	ErrForeignKey = eris.New("store: foreign key violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classifyPostgres maps constraint violations onto the store sentinels.
// Other errors are returned unchanged.
func classifyPostgres(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return eris.Wrapf(ErrDuplicate, "postgres: %s", pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return eris.Wrapf(ErrForeignKey, "postgres: %s", pgErr.ConstraintName)
	}
	return err
}

// classifySQLite maps constraint violations onto the store sentinels.
func classifySQLite(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return eris.Wrap(ErrDuplicate, "sqlite: "+sqlErr.Error())
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return eris.Wrap(ErrForeignKey, "sqlite: "+sqlErr.Error())
	}
	// Without extended result codes only the primary code is set.
	if sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := sqlErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return eris.Wrap(ErrDuplicate, "sqlite: "+msg)
		case strings.Contains(msg, "FOREIGN KEY"):
			return eris.Wrap(ErrForeignKey, "sqlite: "+msg)
		}
	}
	return err
}
