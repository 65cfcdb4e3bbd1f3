package bybit

import (
	"errors"
	"fmt"
)

// ErrInstrumentNotFound reports that the exchange lists no linear perpetual
// contract for the requested symbol.
var ErrInstrumentNotFound = errors.New("instrument not found in linear perpetual category")

// UpstreamError wraps a transport failure or a non-zero exchange return code
// on a read operation. The exchange itself is the source of truth; the
// gateway never retries.
type UpstreamError struct {
	Op    string
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("bybit %s failed: %v", e.Op, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func upstream(op string, cause error) error {
	return &UpstreamError{Op: op, Cause: cause}
}

// OrderRejectedError carries the exchange's own rejection code and message
// for an order placement or cancellation.
type OrderRejectedError struct {
	Code    int64
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected by exchange (retCode=%d): %s", e.Code, e.Message)
}
