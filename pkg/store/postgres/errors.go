package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tcsenpai/lattice/pkg/store"
)

const pgUniqueViolation = "23505"

// mapUniqueViolation translates a Postgres unique-constraint error into
// the shared store.Conflict error, passing through anything else
// unchanged.
func mapUniqueViolation(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return store.Conflict(what + " already exists")
	}
	return err
}
