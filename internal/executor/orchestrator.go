package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradewire/internal/gateway/bybit"
	"tradewire/internal/logger"
	"tradewire/internal/schema"
	"tradewire/internal/store/auditlog"
	"tradewire/internal/webhook"

	"github.com/google/uuid"
)

// Orchestrator drives one inbound request through
// RECEIVED -> AUTHENTICATED -> VALIDATED -> (SKIPPED | EXECUTED | FAILED).
// Authentication and validation failures are returned as errors and abort
// before any trading logic; execution failures become a failed Result that
// the transport reports in a normal response body.
type Orchestrator struct {
	verifier   *webhook.Verifier
	schemas    *schema.Registry
	translator *Translator
	gateway    Gateway // nil means trading unavailable
	audit      auditlog.Recorder
}

func NewOrchestrator(verifier *webhook.Verifier, schemas *schema.Registry, translator *Translator, gateway Gateway, audit auditlog.Recorder) *Orchestrator {
	return &Orchestrator{
		verifier:   verifier,
		schemas:    schemas,
		translator: translator,
		gateway:    gateway,
		audit:      audit,
	}
}

// Result is the outcome of a request that reached VALIDATED. TradeID is
// freshly generated per request regardless of outcome and correlates the
// response with the audit record. Two identical requests produce two
// distinct trade IDs and, for enter, two separate orders; deduplication is
// the caller's responsibility.
type Result struct {
	TradeID   string
	Decision  DecisionKind
	Status    Status
	Symbol    string
	Side      bybit.Side
	Order     *bybit.OrderResult
	Degraded  bool
	ExecError string
}

// Handle authenticates, validates, and executes one raw webhook body.
func (o *Orchestrator) Handle(ctx context.Context, rawBody []byte, signature string) (*Result, error) {
	if err := o.verifier.Verify(rawBody, signature); err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body", ErrBadPayload)
	}
	if err := o.schemas.Validate(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var d Decision
	if err := json.Unmarshal(rawBody, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	tradeID := uuid.NewString()
	result := &Result{
		TradeID:  tradeID,
		Decision: d.Decision,
		Symbol:   d.Symbol,
	}

	switch d.Decision {
	case DecisionSkip:
		result.Status = StatusSkipped
	case DecisionEnter:
		if o.gateway == nil {
			// The trade ID still correlates the audit record with the 503
			// response, so the partial result travels with the error.
			result.Status = StatusFailed
			o.writeAudit(ctx, tradeID, d.Symbol, StatusFailed, rawBody)
			return result, ErrTradingUnavailable
		}
		o.execute(ctx, d, result)
	default:
		// Unreachable once the schema enforces the decision enum; kept as a
		// guard against a loosened schema document.
		return nil, fmt.Errorf("%w: decision must be enter or skip", ErrBadPayload)
	}

	o.writeAudit(ctx, tradeID, d.Symbol, result.Status, rawBody)
	logger.Infof("decision handled: trade_id=%s decision=%s status=%s", tradeID, d.Decision, result.Status)
	return result, nil
}

// execute runs the enter branch. All downstream failures are captured into
// the result rather than propagated.
func (o *Orchestrator) execute(ctx context.Context, d Decision, result *Result) {
	req, degraded, err := o.translator.Translate(ctx, d)
	result.Degraded = degraded
	if err != nil {
		result.Status = StatusFailed
		result.ExecError = err.Error()
		logger.Errorf("trade translation failed: trade_id=%s: %v", result.TradeID, err)
		return
	}
	result.Side = req.Side

	order, err := o.gateway.PlaceOrder(ctx, req)
	if err != nil {
		result.Status = StatusFailed
		result.ExecError = err.Error()
		logger.Errorf("order placement failed: trade_id=%s: %v", result.TradeID, err)
		return
	}
	result.Status = StatusExecuted
	result.Order = &order
}

// writeAudit records the request outcome. Audit logging is best-effort and
// never blocks or fails the caller-visible response.
func (o *Orchestrator) writeAudit(ctx context.Context, tradeID, symbol string, status Status, rawBody []byte) {
	if o.audit == nil {
		return
	}
	rec := auditlog.Record{
		ID:        tradeID,
		CreatedAt: time.Now().UTC(),
		Symbol:    symbol,
		Status:    string(status),
		Raw:       append(json.RawMessage(nil), rawBody...),
	}
	if err := o.audit.Insert(ctx, rec); err != nil {
		logger.Warnf("audit insert failed: trade_id=%s: %v", tradeID, err)
	}
}
