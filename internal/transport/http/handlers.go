package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"tradewire/internal/executor"
	"tradewire/internal/gateway/bybit"
	"tradewire/internal/webhook"

	"github.com/gin-gonic/gin"
)

// Orchestrator is the execution entrypoint consumed by the webhook route.
type Orchestrator interface {
	Handle(ctx context.Context, rawBody []byte, signature string) (*executor.Result, error)
}

// ReadGateway is the slice of the exchange client backing the read-only
// account routes.
type ReadGateway interface {
	GetAccountBalance(ctx context.Context) (bybit.AccountInfo, error)
	ListPositions(ctx context.Context, symbol string) ([]bybit.Position, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]bybit.Order, error)
	ListOrderHistory(ctx context.Context, symbol string, limit int) ([]bybit.Order, error)
	ListExecutions(ctx context.Context, opts bybit.ExecutionOptions) ([]bybit.Execution, error)
}

type handlers struct {
	banner       string
	orchestrator Orchestrator
	gateway      ReadGateway
}

func (h *handlers) register(router *gin.Engine) {
	router.GET("/", h.root)
	v1 := router.Group("/v1")
	v1.GET("/healthz", h.healthz)
	v1.GET("/account", h.account)
	v1.POST("/execute", h.execute)
	v1.GET("/positions", h.positions)
	v1.GET("/orders", h.openOrders)
	v1.GET("/orders/history", h.orderHistory)
	v1.GET("/executions", h.executions)
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": h.banner})
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
}

// account reports trading availability with a balance snapshot. It degrades
// to trading_available=false instead of erroring when the gateway is
// unconfigured or the exchange call fails.
func (h *handlers) account(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusOK, gin.H{
			"trading_available": false,
			"message":           "exchange credentials not configured",
		})
		return
	}
	info, err := h.gateway.GetAccountBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"trading_available": false,
			"error":             err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trading_available": true,
		"account_info": gin.H{
			"total_equity":            info.TotalEquity,
			"total_available_balance": info.TotalAvailableBalance,
			"coins":                   info.Coins,
		},
	})
}

// execute is the main webhook. Authentication and schema failures abort with
// an error status; execution failures come back in a 200 body whose
// execution_status the caller must inspect.
func (h *handlers) execute(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable request body"})
		return
	}

	result, err := h.orchestrator.Handle(c.Request.Context(), raw, c.GetHeader("X-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
		case errors.Is(err, executor.ErrBadPayload):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		case errors.Is(err, executor.ErrTradingUnavailable):
			body := gin.H{"detail": err.Error()}
			if result != nil {
				body["trade_id"] = result.TradeID
			}
			c.JSON(http.StatusServiceUnavailable, body)
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		}
		return
	}

	status := "accepted"
	if result.Status == executor.StatusFailed {
		status = "failed"
	}
	resp := gin.H{
		"status":           status,
		"trade_id":         result.TradeID,
		"decision":         result.Decision,
		"execution_status": result.Status,
	}
	if result.Degraded {
		resp["degraded"] = true
	}
	switch {
	case result.Order != nil:
		resp["order_details"] = gin.H{
			"order_id":       result.Order.OrderID,
			"symbol":         result.Symbol,
			"side":           result.Side,
			"status":         result.Order.Status,
			"executed_qty":   result.Order.ExecutedQty,
			"executed_price": result.Order.ExecutedPrice,
		}
	case result.ExecError != "":
		resp["order_details"] = gin.H{"error": result.ExecError}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) positions(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	positions, err := h.gateway.ListPositions(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (h *handlers) openOrders(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	orders, err := h.gateway.ListOpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) orderHistory(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := h.gateway.ListOrderHistory(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) executions(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	start, _ := strconv.ParseInt(c.Query("start_time"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end_time"), 10, 64)
	execs, err := h.gateway.ListExecutions(c.Request.Context(), bybit.ExecutionOptions{
		Symbol:    c.Query("symbol"),
		Limit:     limit,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": execs})
}

func (h *handlers) requireGateway(c *gin.Context) bool {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "exchange credentials not configured"})
		return false
	}
	return true
}
