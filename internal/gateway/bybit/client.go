// Package bybit is the gateway to the exchange's v5 unified-trading REST API.
// The client owns the authenticated session; it keeps no local cache and
// never retries, so every method is a single request/response exchange.
package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradewire/internal/config"
	"tradewire/internal/logger"
	"tradewire/internal/pkg/trading"

	"github.com/tidwall/gjson"
)

const (
	mainnetBaseURL = "https://api.bybit.com"
	testnetBaseURL = "https://api-testnet.bybit.com"

	defaultHistoryLimit = 50
)

// Client wraps the Bybit v5 REST endpoints this relay needs. Credentials are
// supplied once at construction and are only ever emitted as signatures.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	signer     *signer
}

// NewClient constructs an authenticated gateway from configuration.
func NewClient(cfg config.BybitConfig) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("bybit api credentials not configured")
	}
	raw := mainnetBaseURL
	if cfg.Testnet {
		raw = testnetBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse bybit base url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger.Infof("bybit gateway initialized (testnet=%v)", cfg.Testnet)
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		signer:     newSigner(cfg.APIKey, cfg.APISecret, cfg.RecvWindowMS),
	}, nil
}

// SetBaseURL points the client at a different host. Used by tests.
func (c *Client) SetBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	c.baseURL = parsed
	return nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetAccountBalance reads the unified account's wallet balance.
func (c *Client) GetAccountBalance(ctx context.Context) (AccountInfo, error) {
	const op = "wallet balance"
	query := url.Values{"accountType": {"UNIFIED"}}
	resp, err := c.do(ctx, http.MethodGet, "/v5/account/wallet-balance", query, nil)
	if err != nil {
		return AccountInfo{}, upstream(op, err)
	}
	if resp.Code != 0 {
		return AccountInfo{}, upstream(op, retErr(resp))
	}
	account := resp.Result.Get("list.0")
	info := AccountInfo{
		TotalEquity:           account.Get("totalEquity").Float(),
		TotalAvailableBalance: account.Get("totalAvailableBalance").Float(),
	}
	for _, coin := range account.Get("coin").Array() {
		info.Coins = append(info.Coins, CoinBalance{
			Coin:          coin.Get("coin").String(),
			Equity:        coin.Get("equity").Float(),
			WalletBalance: coin.Get("walletBalance").Float(),
		})
	}
	return info, nil
}

// GetInstrumentSpec fetches the lot size and price filters for a linear
// perpetual symbol. The result is read fresh per call; instrument rules are
// never cached.
func (c *Client) GetInstrumentSpec(ctx context.Context, symbol string) (InstrumentSpec, error) {
	const op = "instruments info"
	query := url.Values{"category": {categoryLinear}, "symbol": {symbol}}
	resp, err := c.do(ctx, http.MethodGet, "/v5/market/instruments-info", query, nil)
	if err != nil {
		return InstrumentSpec{}, upstream(op, err)
	}
	if resp.Code != 0 {
		return InstrumentSpec{}, upstream(op, retErr(resp))
	}
	item := resp.Result.Get("list.0")
	if !item.Exists() {
		return InstrumentSpec{}, fmt.Errorf("%w: %s", ErrInstrumentNotFound, symbol)
	}
	return InstrumentSpec{
		Symbol: item.Get("symbol").String(),
		LotSize: LotSizeFilter{
			MinOrderQty: item.Get("lotSizeFilter.minOrderQty").Float(),
			MaxOrderQty: item.Get("lotSizeFilter.maxOrderQty").Float(),
			QtyStep:     item.Get("lotSizeFilter.qtyStep").Float(),
		},
		Price: PriceFilter{
			TickSize: item.Get("priceFilter.tickSize").Float(),
		},
	}, nil
}

// GetLastPrice reads the latest traded price from the linear ticker.
func (c *Client) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	const op = "ticker"
	query := url.Values{"category": {categoryLinear}, "symbol": {symbol}}
	resp, err := c.do(ctx, http.MethodGet, "/v5/market/tickers", query, nil)
	if err != nil {
		return 0, upstream(op, err)
	}
	if resp.Code != 0 {
		return 0, upstream(op, retErr(resp))
	}
	last := resp.Result.Get("list.0.lastPrice")
	if !last.Exists() || last.Float() <= 0 {
		return 0, upstream(op, fmt.Errorf("no ticker for %s", symbol))
	}
	return last.Float(), nil
}

type createOrderPayload struct {
	Category   string `json:"category"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	Qty        string `json:"qty"`
	Price      string `json:"price,omitempty"`
	StopLoss   string `json:"stopLoss,omitempty"`
	TakeProfit string `json:"takeProfit,omitempty"`
}

// PlaceOrder submits a normalized order. A non-zero exchange return code
// surfaces as OrderRejectedError carrying the exchange's message; transport
// failures surface as UpstreamError.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	const op = "order create"
	payload := createOrderPayload{
		Category:  categoryLinear,
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		OrderType: string(req.Type),
		Qty:       trading.FormatAmount(req.Qty),
	}
	if req.Type == Limit {
		payload.Price = trading.FormatAmount(req.Price)
	}
	if req.StopLoss > 0 {
		payload.StopLoss = trading.FormatAmount(req.StopLoss)
	}
	if req.TakeProfit > 0 {
		payload.TakeProfit = trading.FormatAmount(req.TakeProfit)
	}
	logger.Infof("placing %s %s order: symbol=%s qty=%s price=%s sl=%s tp=%s",
		payload.Side, payload.OrderType, payload.Symbol, payload.Qty, payload.Price, payload.StopLoss, payload.TakeProfit)

	resp, err := c.do(ctx, http.MethodPost, "/v5/order/create", nil, payload)
	if err != nil {
		return OrderResult{}, upstream(op, err)
	}
	if resp.Code != 0 {
		return OrderResult{}, &OrderRejectedError{Code: resp.Code, Message: resp.Msg}
	}
	result := OrderResult{
		OrderID:       resp.Result.Get("orderId").String(),
		Status:        resp.Result.Get("orderStatus").String(),
		ExecutedQty:   resp.Result.Get("cumExecQty").Float(),
		ExecutedPrice: resp.Result.Get("avgPrice").Float(),
	}
	logger.Infof("order placed: orderId=%s", result.OrderID)
	return result, nil
}

// GetOrderStatus looks an order up in the order history.
func (c *Client) GetOrderStatus(ctx context.Context, orderID, symbol string) (Order, error) {
	const op = "order status"
	query := url.Values{
		"category": {categoryLinear},
		"symbol":   {symbol},
		"orderId":  {orderID},
	}
	resp, err := c.do(ctx, http.MethodGet, "/v5/order/history", query, nil)
	if err != nil {
		return Order{}, upstream(op, err)
	}
	if resp.Code != 0 {
		return Order{}, upstream(op, retErr(resp))
	}
	item := resp.Result.Get("list.0")
	if !item.Exists() {
		return Order{}, upstream(op, fmt.Errorf("order %s not found", orderID))
	}
	return parseOrder(item), nil
}

type cancelOrderPayload struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID, symbol string) error {
	const op = "order cancel"
	payload := cancelOrderPayload{Category: categoryLinear, Symbol: symbol, OrderID: orderID}
	resp, err := c.do(ctx, http.MethodPost, "/v5/order/cancel", nil, payload)
	if err != nil {
		return upstream(op, err)
	}
	if resp.Code != 0 {
		return &OrderRejectedError{Code: resp.Code, Message: resp.Msg}
	}
	logger.Infof("order cancelled: orderId=%s", orderID)
	return nil
}

// ListPositions returns open linear perpetual positions, optionally filtered
// by symbol.
func (c *Client) ListPositions(ctx context.Context, symbol string) ([]Position, error) {
	const op = "position list"
	query := url.Values{"category": {categoryLinear}, "settleCoin": {settleCoin}}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	resp, err := c.do(ctx, http.MethodGet, "/v5/position/list", query, nil)
	if err != nil {
		return nil, upstream(op, err)
	}
	if resp.Code != 0 {
		return nil, upstream(op, retErr(resp))
	}
	var positions []Position
	for _, item := range resp.Result.Get("list").Array() {
		positions = append(positions, Position{
			Symbol:        item.Get("symbol").String(),
			Side:          item.Get("side").String(),
			Size:          item.Get("size").Float(),
			EntryPrice:    item.Get("avgPrice").Float(),
			MarkPrice:     item.Get("markPrice").Float(),
			Leverage:      item.Get("leverage").Float(),
			UnrealizedPnL: item.Get("unrealisedPnl").Float(),
		})
	}
	return positions, nil
}

// ListOpenOrders returns currently active orders.
func (c *Client) ListOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	const op = "open orders"
	query := url.Values{"category": {categoryLinear}, "settleCoin": {settleCoin}}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	resp, err := c.do(ctx, http.MethodGet, "/v5/order/realtime", query, nil)
	if err != nil {
		return nil, upstream(op, err)
	}
	if resp.Code != 0 {
		return nil, upstream(op, retErr(resp))
	}
	return parseOrders(resp.Result), nil
}

// ListOrderHistory returns past orders, newest first.
func (c *Client) ListOrderHistory(ctx context.Context, symbol string, limit int) ([]Order, error) {
	const op = "order history"
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query := url.Values{"category": {categoryLinear}, "limit": {strconv.Itoa(limit)}}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	resp, err := c.do(ctx, http.MethodGet, "/v5/order/history", query, nil)
	if err != nil {
		return nil, upstream(op, err)
	}
	if resp.Code != 0 {
		return nil, upstream(op, retErr(resp))
	}
	return parseOrders(resp.Result), nil
}

// ListExecutions returns fills from the trade history.
func (c *Client) ListExecutions(ctx context.Context, opts ExecutionOptions) ([]Execution, error) {
	const op = "execution list"
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	query := url.Values{"category": {categoryLinear}, "limit": {strconv.Itoa(opts.Limit)}}
	if opts.Symbol != "" {
		query.Set("symbol", opts.Symbol)
	}
	if opts.StartTime > 0 {
		query.Set("startTime", strconv.FormatInt(opts.StartTime, 10))
	}
	if opts.EndTime > 0 {
		query.Set("endTime", strconv.FormatInt(opts.EndTime, 10))
	}
	resp, err := c.do(ctx, http.MethodGet, "/v5/execution/list", query, nil)
	if err != nil {
		return nil, upstream(op, err)
	}
	if resp.Code != 0 {
		return nil, upstream(op, retErr(resp))
	}
	var execs []Execution
	for _, item := range resp.Result.Get("list").Array() {
		execs = append(execs, Execution{
			ExecID:   item.Get("execId").String(),
			OrderID:  item.Get("orderId").String(),
			Symbol:   item.Get("symbol").String(),
			Side:     item.Get("side").String(),
			Price:    item.Get("execPrice").Float(),
			Qty:      item.Get("execQty").Float(),
			Fee:      item.Get("execFee").Float(),
			ExecTime: item.Get("execTime").Int(),
		})
	}
	return execs, nil
}

func parseOrders(result gjson.Result) []Order {
	var orders []Order
	for _, item := range result.Get("list").Array() {
		orders = append(orders, parseOrder(item))
	}
	return orders
}

func parseOrder(item gjson.Result) Order {
	return Order{
		OrderID:     item.Get("orderId").String(),
		Symbol:      item.Get("symbol").String(),
		Side:        item.Get("side").String(),
		Type:        item.Get("orderType").String(),
		Status:      item.Get("orderStatus").String(),
		Qty:         item.Get("qty").Float(),
		Price:       item.Get("price").Float(),
		AvgPrice:    item.Get("avgPrice").Float(),
		CumExecQty:  item.Get("cumExecQty").Float(),
		CreatedTime: item.Get("createdTime").Int(),
	}
}

// apiResponse is the decoded v5 envelope: {retCode, retMsg, result}.
type apiResponse struct {
	Code   int64
	Msg    string
	Result gjson.Result
}

func retErr(resp *apiResponse) error {
	return fmt.Errorf("retCode=%d: %s", resp.Code, resp.Msg)
}

// do performs one signed request/response exchange. It fails on transport
// errors, non-2xx statuses, and unparseable bodies; non-zero retCode is the
// caller's concern because its meaning differs per endpoint.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*apiResponse, error) {
	if c == nil || c.baseURL == nil {
		return nil, fmt.Errorf("bybit client not initialized")
	}
	endpoint := *c.baseURL
	endpoint.Path = path
	rawQuery := ""
	if query != nil {
		rawQuery = query.Encode()
		endpoint.RawQuery = rawQuery
	}

	var body io.Reader
	signPayload := rawQuery
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request failed: %w", err)
		}
		body = bytes.NewReader(buf)
		signPayload = string(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.signer.headers(signPayload) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %s: %s", resp.Status, bytes.TrimSpace(data))
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed response body")
	}
	parsed := gjson.ParseBytes(data)
	logger.Debugf("bybit %s %s retCode=%d", method, path, parsed.Get("retCode").Int())
	return &apiResponse{
		Code:   parsed.Get("retCode").Int(),
		Msg:    parsed.Get("retMsg").String(),
		Result: parsed.Get("result"),
	}, nil
}
