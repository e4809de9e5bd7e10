package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/pkg/errors"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/visitor"
)

// trapErr maps low-level database errors to the ones upper layers act
// on: missing rows surface as visitor.ErrNotFound and a poisoned
// connection becomes a shutdown error.
func trapErr(err error, msg string) error {
	switch errors.Cause(err) {
	case sql.ErrNoRows:
		return visitor.ErrNotFound
	case driver.ErrBadConn:
		return core.NewShutdownError(msg + ": bad database connection")
	}
	return errors.Wrap(err, msg)
}
