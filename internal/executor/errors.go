package executor

import "errors"

var (
	// ErrBadPayload marks requests rejected before any trading logic runs:
	// unparseable JSON or a schema violation. Mapped to 400 at the transport.
	ErrBadPayload = errors.New("invalid payload")

	// ErrTradingUnavailable is returned for enter decisions when no exchange
	// credentials are configured. Mapped to 503 at the transport, distinct
	// from a failed execution.
	ErrTradingUnavailable = errors.New("trading not available: exchange credentials not configured")

	ErrInvalidSide          = errors.New("side must be long or short")
	ErrInvalidPlan          = errors.New("position_usd must be positive")
	ErrNoEntries            = errors.New("limit entry plan requires at least one entry")
	ErrUnsupportedEntryType = errors.New("unsupported entry type")
)
