// Package executor turns validated decision payloads into exchange orders
// and tracks each request through its execution lifecycle.
package executor

// DecisionKind is the top-level decision tag. Payloads are validated once at
// the boundary; downstream code never re-checks tag values.
type DecisionKind string

const (
	DecisionEnter DecisionKind = "enter"
	DecisionSkip  DecisionKind = "skip"
)

// PositionSide is the caller's directional intent.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// EntryType selects the entry strategy within a risk plan.
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryLimit  EntryType = "limit"
)

// Decision is the inbound trading decision. Immutable once received; it
// lives for the duration of a single request.
type Decision struct {
	Decision DecisionKind `json:"decision"`
	Symbol   string       `json:"symbol"`
	Side     PositionSide `json:"side"`
	RiskPlan RiskPlan     `json:"risk_plan"`
}

// RiskPlan carries the caller-supplied position sizing and protection levels.
type RiskPlan struct {
	PositionUSD float64      `json:"position_usd"`
	EntryPlan   EntryPlan    `json:"entry_plan"`
	StopLoss    float64      `json:"stop_loss,omitempty"`
	TakeProfits []TakeProfit `json:"take_profits,omitempty"`
}

type EntryPlan struct {
	Type    EntryType `json:"type"`
	Entries []Entry   `json:"entries,omitempty"`
}

type Entry struct {
	Price    float64 `json:"price"`
	SizeFrac float64 `json:"size_frac"`
}

type TakeProfit struct {
	Price float64 `json:"price"`
}

// Status is the terminal state of one execution request.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)
