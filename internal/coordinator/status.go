package coordinator

import (
	"errors"

	"github.com/kdurus/durusd/internal/engine"
	"github.com/kdurus/durusd/internal/wire"
)

// classifyLoadErr maps an engine error to the wire status it implies
// for a load reply, or (0, false) if the error is unexpected and
// should instead propagate and drop the session.
func classifyLoadErr(err error) (wire.Status, bool) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return wire.StatusKeyError, true
	case errors.Is(err, engine.ErrReadConflict):
		return wire.StatusInvalid, true
	default:
		return 0, false
	}
}
