package engine

import (
	"errors"

	"github.com/svrddd/tgbotNEW/internal/orders"
)

var (
	// ErrInvalidTransition means the event is not defined in the session's
	// current state. The session is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrEmptyCart is the persistence sentinel re-exported so callers can
	// classify checkout/confirm failures without importing orders.
	ErrEmptyCart = orders.ErrEmptyCart
)
