package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err, anywhere in its chain, is a unique
// constraint violation, optionally restricted to the named constraint. Driver
// error types are preferred; the message scan covers wrapped errors and the
// sqlite driver used in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	var msg strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg.WriteString(e.Error())
		msg.WriteByte('\n')
	}
	chain := msg.String()
	if strings.Contains(chain, "UNIQUE constraint failed") {
		// sqlite reports the column list, never the constraint name, so the
		// name filter cannot apply there.
		return true
	}
	if !strings.Contains(chain, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(chain, constraintName)
}
