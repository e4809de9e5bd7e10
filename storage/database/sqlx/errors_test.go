package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/visitor"
)

func TestTrapErr(t *testing.T) {
	if err := trapErr(sql.ErrNoRows, "finding visitor"); err != visitor.ErrNotFound {
		t.Errorf("trapErr(sql.ErrNoRows) = %v, want ErrNotFound", err)
	}
	if err := trapErr(errors.Wrap(sql.ErrNoRows, "scanning row"), "finding visitor"); err != visitor.ErrNotFound {
		t.Errorf("trapErr(wrapped sql.ErrNoRows) = %v, want ErrNotFound", err)
	}

	if err := trapErr(driver.ErrBadConn, "upserting visitor"); !core.IsShutdown(err) {
		t.Errorf("trapErr(driver.ErrBadConn) = %v, want a shutdown error", err)
	}
	if err := trapErr(errors.Wrap(driver.ErrBadConn, "executing query"), "upserting visitor"); !core.IsShutdown(err) {
		t.Errorf("trapErr(wrapped driver.ErrBadConn) = %v, want a shutdown error", err)
	}

	boom := errors.New("boom")
	err := trapErr(boom, "counting visitors")
	if errors.Cause(err) != boom {
		t.Errorf("trapErr() cause = %v, want %v", errors.Cause(err), boom)
	}
	if core.IsShutdown(err) || err == visitor.ErrNotFound {
		t.Errorf("trapErr() misclassified: %v", err)
	}
}
