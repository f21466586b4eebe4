// Package repository owns all PostgreSQL access. Each aggregate has its own
// repository struct over a shared sqlx handle. Cross-entity invariants use
// conditional single-row updates, not multi-row transactions; every
// conditional update reports whether a row changed so callers can build
// idempotent retries on top.
package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique-index conflicts.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-index conflict. The
// repositories translate these into the domain duplicate errors that the
// idempotency contracts depend on.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
