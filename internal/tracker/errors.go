package tracker

import (
	"errors"
)

var (
	// ErrUnknownBoss is returned for names not present in the catalog.
	ErrUnknownBoss = errors.New("unknown boss")

	// ErrNotIntervalBoss is returned when a timer command targets a
	// weekly-schedule boss.
	ErrNotIntervalBoss = errors.New("boss does not use an interval timer")

	// ErrStoreUnavailable wraps timer-store failures. Callers see a generic
	// message; the underlying cause is logged, never returned to clients.
	ErrStoreUnavailable = errors.New("timer store unavailable")

	// ErrAmbiguousConfirm is returned when a confirm supplies both a kill
	// time and a next-spawn override.
	ErrAmbiguousConfirm = errors.New("confirm accepts either a kill time or a next-spawn override, not both")

	// ErrInvalidInterval guards the auto-advance loop against a non-positive
	// interval. The catalog validates this at startup, so hitting it at
	// request time means the catalog was built by hand.
	ErrInvalidInterval = errors.New("boss interval must be positive")
)
