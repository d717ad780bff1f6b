package sqlxrepos

import (
	"context"
	"database/sql/driver"
	stderrs "errors"

	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
)

// dbErr normalizes driver failures into the shared infrastructure errors
// so callers can apply their retry policy without knowing the driver.
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case stderrs.Is(err, context.DeadlineExceeded):
		return core.ErrTimeout
	case stderrs.Is(err, driver.ErrBadConn):
		return core.ErrStoreUnavailable
	}
	return errors.Wrap(err, msg)
}
