package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for a unique-index conflict.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The attendance and registration engines rely on these: races on the same
// key are resolved by the database, not by application locking.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
