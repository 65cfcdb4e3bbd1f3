// Package auditlog records one TradeRecord per inbound execution request.
// Writes are best-effort by contract: a sink failure is logged and never
// surfaces to the caller-visible response.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Record is the write-once audit row for a single request. The core only
// produces records; it never reads them back.
type Record struct {
	ID        string
	CreatedAt time.Time
	Symbol    string
	Status    string
	Raw       json.RawMessage
}

// Recorder is an audit sink.
type Recorder interface {
	Insert(ctx context.Context, rec Record) error
}

// Fanout writes the record to every configured sink and reports the joined
// failures, if any. Sinks are independent; one failing does not stop the rest.
type Fanout []Recorder

func (f Fanout) Insert(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Insert(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
