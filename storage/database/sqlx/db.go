package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/researchnest/backend/core"
)

// trapNoRowsErr replaces sql.ErrNoRows with notFoundErr and wraps any other error with msg.
func trapNoRowsErr(err error, notFoundErr error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return notFoundErr
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a unique or primary key constraint violation.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// orderBy builds an ORDER BY clause from orderings, keeping only the allowed fields.
// defaultOrder is used when no allowed field remains.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, defaultOrder string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, defaultOrder)
	}
	return " ORDER BY " + strings.Join(clauses, ", ") + ", id ASC"
}

// rollback aborts tx, keeping err as the reported failure.
func rollback(tx core.DBTransactor, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		return errors.Wrapf(err, "rolling back: %v", rbErr)
	}
	return err
}
