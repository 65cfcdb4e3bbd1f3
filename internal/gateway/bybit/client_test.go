package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradewire/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.BybitConfig{
		APIKey:         "test-key",
		APISecret:      "test-secret",
		RecvWindowMS:   5000,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	require.NoError(t, c.SetBaseURL(srv.URL))
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.BybitConfig{})
	assert.Error(t, err)
}

func TestRequestsCarrySignatureHeaders(t *testing.T) {
	var captured http.Header
	var capturedQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		capturedQuery = r.URL.RawQuery
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{"lastPrice":"50000"}]}}`))
	})

	_, err := c.GetLastPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "test-key", captured.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "5000", captured.Get("X-BAPI-RECV-WINDOW"))
	require.NotEmpty(t, captured.Get("X-BAPI-TIMESTAMP"))
	require.NotEmpty(t, captured.Get("X-BAPI-SIGN"))

	// GET signatures cover timestamp+apiKey+recvWindow+rawQuery.
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(captured.Get("X-BAPI-TIMESTAMP") + "test-key" + "5000" + capturedQuery))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), captured.Get("X-BAPI-SIGN"))
}

func TestSignerIsDeterministicPerTimestamp(t *testing.T) {
	s := newSigner("key", "secret", 5000)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	assert.Equal(t, s.signAt("1700000000000", "a=b"), s.headers("a=b")["X-BAPI-SIGN"])
}

func TestGetAccountBalance(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/account/wallet-balance", r.URL.Path)
		assert.Equal(t, "UNIFIED", r.URL.Query().Get("accountType"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"totalEquity":"1500.25",
			"totalAvailableBalance":"1200.5",
			"coin":[{"coin":"USDT","equity":"1500.25","walletBalance":"1490"}]
		}]}}`))
	})

	info, err := c.GetAccountBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1500.25, info.TotalEquity)
	assert.Equal(t, 1200.5, info.TotalAvailableBalance)
	require.Len(t, info.Coins, 1)
	assert.Equal(t, "USDT", info.Coins[0].Coin)
	assert.Equal(t, 1490.0, info.Coins[0].WalletBalance)
}

func TestGetInstrumentSpec(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"symbol":"BTCUSDT",
			"lotSizeFilter":{"minOrderQty":"0.001","maxOrderQty":"100","qtyStep":"0.001"},
			"priceFilter":{"tickSize":"0.1"}
		}]}}`))
	})

	spec, err := c.GetInstrumentSpec(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", spec.Symbol)
	assert.Equal(t, 0.001, spec.LotSize.MinOrderQty)
	assert.Equal(t, 100.0, spec.LotSize.MaxOrderQty)
	assert.Equal(t, 0.001, spec.LotSize.QtyStep)
	assert.Equal(t, 0.1, spec.Price.TickSize)
}

func TestGetInstrumentSpecUnknownSymbol(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[]}}`))
	})
	_, err := c.GetInstrumentSpec(context.Background(), "NOPEUSDT")
	assert.ErrorIs(t, err, ErrInstrumentNotFound)
}

func TestGetLastPriceRejectsEmptyTicker(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[]}}`))
	})
	_, err := c.GetLastPrice(context.Background(), "BTCUSDT")
	assert.Error(t, err)
	var ue *UpstreamError
	assert.ErrorAs(t, err, &ue)
}

func TestPlaceOrderSendsFormattedFields(t *testing.T) {
	var body string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		buf, _ := io.ReadAll(r.Body)
		body = string(buf)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"abc-1"}}`))
	})

	result, err := c.PlaceOrder(context.Background(), OrderRequest{
		Symbol:     "BTCUSDT",
		Side:       Buy,
		Type:       Limit,
		Qty:        0.01,
		Price:      49500.0,
		StopLoss:   48000.0,
		TakeProfit: 52000.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-1", result.OrderID)

	parsed := gjson.Parse(body)
	assert.Equal(t, "linear", parsed.Get("category").String())
	assert.Equal(t, "BTCUSDT", parsed.Get("symbol").String())
	assert.Equal(t, "Buy", parsed.Get("side").String())
	assert.Equal(t, "Limit", parsed.Get("orderType").String())
	assert.Equal(t, "0.01", parsed.Get("qty").String())
	assert.Equal(t, "49500", parsed.Get("price").String())
	assert.Equal(t, "48000", parsed.Get("stopLoss").String())
	assert.Equal(t, "52000", parsed.Get("takeProfit").String())
}

func TestPlaceOrderOmitsZeroProtections(t *testing.T) {
	var body string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		body = string(buf)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"abc-2"}}`))
	})

	_, err := c.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: Sell, Type: Market, Qty: 0.1,
	})
	require.NoError(t, err)

	parsed := gjson.Parse(body)
	assert.False(t, parsed.Get("price").Exists())
	assert.False(t, parsed.Get("stopLoss").Exists())
	assert.False(t, parsed.Get("takeProfit").Exists())
}

func TestPlaceOrderRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":110007,"retMsg":"ab not enough for new order","result":{}}`))
	})

	_, err := c.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: Buy, Type: Market, Qty: 0.01,
	})
	var rejected *OrderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, int64(110007), rejected.Code)
	assert.Contains(t, rejected.Message, "not enough")
}

func TestDoRejectsBadResponses(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		})
		_, err := c.GetLastPrice(context.Background(), "BTCUSDT")
		assert.ErrorContains(t, err, "502")
	})

	t.Run("malformed body", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		})
		_, err := c.GetLastPrice(context.Background(), "BTCUSDT")
		assert.ErrorContains(t, err, "malformed")
	})
}

func TestListPositions(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/position/list", r.URL.Path)
		assert.Equal(t, "USDT", r.URL.Query().Get("settleCoin"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"symbol":"ETHUSDT","side":"Sell","size":"1.5","avgPrice":"3000",
			"markPrice":"2990","leverage":"3","unrealisedPnl":"15"
		}]}}`))
	})

	positions, err := c.ListPositions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "ETHUSDT", positions[0].Symbol)
	assert.Equal(t, 1.5, positions[0].Size)
	assert.Equal(t, 3000.0, positions[0].EntryPrice)
	assert.Equal(t, 15.0, positions[0].UnrealizedPnL)
}

func TestListOrderHistoryDefaultsLimit(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"orderId":"o1","symbol":"BTCUSDT","side":"Buy","orderType":"Market",
			"orderStatus":"Filled","qty":"0.01","avgPrice":"50000","cumExecQty":"0.01",
			"createdTime":"1700000000000"
		}]}}`))
	})

	orders, err := c.ListOrderHistory(context.Background(), "BTCUSDT", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Filled", orders[0].Status)
	assert.Equal(t, int64(1700000000000), orders[0].CreatedTime)
}

func TestListExecutionsPassesTimeRange(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1700000000000", r.URL.Query().Get("startTime"))
		assert.Equal(t, "1700000100000", r.URL.Query().Get("endTime"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"execId":"e1","orderId":"o1","symbol":"BTCUSDT","side":"Buy",
			"execPrice":"50000","execQty":"0.01","execFee":"0.275","execTime":"1700000050000"
		}]}}`))
	})

	execs, err := c.ListExecutions(context.Background(), ExecutionOptions{
		Symbol:    "BTCUSDT",
		StartTime: 1700000000000,
		EndTime:   1700000100000,
	})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, 0.275, execs[0].Fee)
}

func TestGetOrderStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/history", r.URL.Path)
		assert.Equal(t, "o1", r.URL.Query().Get("orderId"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{
			"orderId":"o1","symbol":"BTCUSDT","orderStatus":"Filled","cumExecQty":"0.01"
		}]}}`))
	})

	order, err := c.GetOrderStatus(context.Background(), "o1", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "Filled", order.Status)
	assert.Equal(t, 0.01, order.CumExecQty)
}

func TestGetOrderStatusNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[]}}`))
	})
	_, err := c.GetOrderStatus(context.Background(), "missing", "BTCUSDT")
	assert.ErrorContains(t, err, "not found")
}

func TestCancelOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/cancel", r.URL.Path)
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"o1"}}`))
	})
	assert.NoError(t, c.CancelOrder(context.Background(), "o1", "BTCUSDT"))
}
