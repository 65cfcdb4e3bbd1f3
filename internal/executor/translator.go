package executor

import (
	"context"
	"fmt"

	"tradewire/internal/config"
	"tradewire/internal/gateway/bybit"
	"tradewire/internal/logger"
	"tradewire/internal/pkg/symbol"
	"tradewire/internal/pkg/trading"
)

// Gateway is the slice of the exchange client the executor needs.
type Gateway interface {
	GetInstrumentSpec(ctx context.Context, symbol string) (bybit.InstrumentSpec, error)
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, req bybit.OrderRequest) (bybit.OrderResult, error)
}

// Translator maps an enter decision's risk plan onto a concrete exchange
// order. It is stateless; every call fetches live price and instrument rules.
type Translator struct {
	gateway      Gateway
	fallbackQty  float64
	limitQtyMode config.LimitQtyMode
}

func NewTranslator(gateway Gateway, cfg config.TradingConfig) *Translator {
	return &Translator{
		gateway:      gateway,
		fallbackQty:  cfg.FallbackQty,
		limitQtyMode: cfg.LimitQtyMode,
	}
}

// Translate builds the OrderRequest for an enter decision. The degraded flag
// reports that live sizing data could not be fetched and the fallback
// minimum quantity was used instead; that path trades precision for
// availability on purpose and must be visible in telemetry.
func (t *Translator) Translate(ctx context.Context, d Decision) (req bybit.OrderRequest, degraded bool, err error) {
	wireSymbol := symbol.ToExchange(d.Symbol)

	var side bybit.Side
	switch d.Side {
	case SideLong:
		side = bybit.Buy
	case SideShort:
		side = bybit.Sell
	default:
		return bybit.OrderRequest{}, false, fmt.Errorf("%w: %q", ErrInvalidSide, d.Side)
	}

	plan := d.RiskPlan
	if plan.PositionUSD <= 0 {
		return bybit.OrderRequest{}, false, ErrInvalidPlan
	}

	qty, spec, degraded := t.sizePosition(ctx, wireSymbol, plan.PositionUSD)

	req = bybit.OrderRequest{
		Symbol:     wireSymbol,
		Side:       side,
		StopLoss:   plan.StopLoss,
		TakeProfit: firstTakeProfit(plan.TakeProfits),
	}

	// An absent entry plan means a plain market entry.
	entryType := plan.EntryPlan.Type
	if entryType == "" {
		entryType = EntryMarket
	}
	switch entryType {
	case EntryMarket:
		req.Type = bybit.Market
		req.Qty = qty
	case EntryLimit:
		if len(plan.EntryPlan.Entries) == 0 {
			return bybit.OrderRequest{}, degraded, ErrNoEntries
		}
		entry := plan.EntryPlan.Entries[0]
		sizeFrac := entry.SizeFrac
		if sizeFrac <= 0 {
			sizeFrac = 1.0
		}
		req.Type = bybit.Limit
		req.Qty = t.limitQty(plan.PositionUSD, sizeFrac, entry.Price)
		req.Price = trading.NormalizePrice(entry.Price, spec.Price.TickSize)
	default:
		return bybit.OrderRequest{}, degraded, fmt.Errorf("%w: %q", ErrUnsupportedEntryType, entryType)
	}

	return req, degraded, nil
}

// sizePosition converts the USD notional to a base quantity using the live
// last price, normalized against the instrument's lot size filter. When the
// price or instrument lookup fails for any reason the position degrades to
// the configured fallback quantity instead of aborting; the failure reason
// is logged rather than discarded.
func (t *Translator) sizePosition(ctx context.Context, wireSymbol string, positionUSD float64) (float64, bybit.InstrumentSpec, bool) {
	lastPrice, err := t.gateway.GetLastPrice(ctx, wireSymbol)
	if err != nil {
		logger.Warnf("degraded sizing for %s: price lookup failed, using fallback qty %v: %v",
			wireSymbol, t.fallbackQty, err)
		return t.fallbackQty, bybit.InstrumentSpec{}, true
	}

	qty := positionUSD / lastPrice

	spec, err := t.gateway.GetInstrumentSpec(ctx, wireSymbol)
	if err != nil {
		logger.Warnf("degraded sizing for %s: instrument lookup failed, using fallback qty %v: %v",
			wireSymbol, t.fallbackQty, err)
		return t.fallbackQty, bybit.InstrumentSpec{}, true
	}

	normalized := trading.NormalizeQty(qty, spec.LotSize.MinOrderQty, spec.LotSize.MaxOrderQty, spec.LotSize.QtyStep)
	if normalized != qty {
		logger.Infof("qty normalized for %s: %v -> %v (min=%v step=%v)",
			wireSymbol, qty, normalized, spec.LotSize.MinOrderQty, spec.LotSize.QtyStep)
	}
	return normalized, spec, false
}

// limitQty derives the limit-order quantity. The inherited notional mode
// forwards position_usd*size_frac directly as a base quantity, which mixes
// units; the converted mode divides by the limit price. See DESIGN.md for
// why notional remains the default.
func (t *Translator) limitQty(positionUSD, sizeFrac, price float64) float64 {
	notional := positionUSD * sizeFrac
	if t.limitQtyMode == config.LimitQtyConverted && price > 0 {
		return notional / price
	}
	if t.limitQtyMode == config.LimitQtyNotional {
		logger.Warnf("limit qty mode is notional: submitting %v (USD notional) as base quantity", notional)
	}
	return notional
}

func firstTakeProfit(tps []TakeProfit) float64 {
	if len(tps) == 0 {
		return 0
	}
	if len(tps) > 1 {
		// Only a single TP field is attached to the order; extra levels are
		// not multi-leg bracket support and are dropped.
		logger.Infof("take_profits has %d levels, attaching only the first", len(tps))
	}
	return tps[0].Price
}
