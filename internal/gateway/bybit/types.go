package bybit

// Side is the order direction in the exchange's vocabulary.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

// OrderType distinguishes market from limit entries.
type OrderType string

const (
	Market OrderType = "Market"
	Limit  OrderType = "Limit"
)

// categoryLinear restricts every call to linear perpetual futures, the only
// contract category this relay trades.
const categoryLinear = "linear"

// settleCoin is the settlement asset required by position and open-order
// queries on the linear category.
const settleCoin = "USDT"

// AccountInfo is a snapshot of the unified account's balances.
type AccountInfo struct {
	TotalEquity           float64       `json:"total_equity"`
	TotalAvailableBalance float64       `json:"total_available_balance"`
	Coins                 []CoinBalance `json:"coins"`
}

type CoinBalance struct {
	Coin          string  `json:"coin"`
	Equity        float64 `json:"equity"`
	WalletBalance float64 `json:"wallet_balance"`
}

// LotSizeFilter is the exchange-imposed quantity granularity.
type LotSizeFilter struct {
	MinOrderQty float64
	MaxOrderQty float64
	QtyStep     float64
}

// PriceFilter is the exchange-imposed price granularity.
type PriceFilter struct {
	TickSize float64
}

// InstrumentSpec is the per-symbol trading rule set, fetched fresh for every
// execution so it always reflects current exchange rules.
type InstrumentSpec struct {
	Symbol  string
	LotSize LotSizeFilter
	Price   PriceFilter
}

// OrderRequest is the normalized, exchange-ready order. Constructed once per
// execution attempt and never mutated afterwards.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Type       OrderType
	Qty        float64
	Price      float64 // limit orders only
	StopLoss   float64 // 0 = not set
	TakeProfit float64 // 0 = not set
}

// OrderResult is the outcome of an order placement.
type OrderResult struct {
	OrderID       string
	Status        string
	ExecutedQty   float64
	ExecutedPrice float64
}

// Order is a row from the order history or the open-order book.
type Order struct {
	OrderID     string  `json:"order_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"`
	AvgPrice    float64 `json:"avg_price"`
	CumExecQty  float64 `json:"cum_exec_qty"`
	CreatedTime int64   `json:"created_time"`
}

// Position is an open linear perpetual position.
type Position struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	Leverage      float64 `json:"leverage"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// Execution is a single fill from the trade history.
type Execution struct {
	ExecID   string  `json:"exec_id"`
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Qty      float64 `json:"qty"`
	Fee      float64 `json:"fee"`
	ExecTime int64   `json:"exec_time"`
}

// ExecutionOptions filters the execution history query. Zero values mean
// "no filter"; Limit defaults to 50 as the original deployment did.
type ExecutionOptions struct {
	Symbol    string
	Limit     int
	StartTime int64
	EndTime   int64
}
