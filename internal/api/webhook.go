package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"options-core/internal/events"
	"options-core/internal/strategy"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxWebhookLogs caps the in-memory command log; the oldest entry is evicted
// first.
const maxWebhookLogs = 1000

// CommandCallback is the execution entry point a received command is handed
// to. Invoked synchronously within the request.
type CommandCallback func(ctx context.Context, cmd strategy.Command) strategy.IterationResult

// WebhookLogEntry is one record in the append-only command log.
type WebhookLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RemoteIP  string    `json:"remote_ip"`
	Action    string    `json:"action"`
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"` // accepted, rejected, executed, failed
	Message   string    `json:"message,omitempty"`
}

// WebhookChannel authenticates inbound trading commands and forwards them to
// the registered callback. It never mutates trading state itself.
type WebhookChannel struct {
	token string
	bus   *events.Bus

	mu       sync.Mutex
	callback CommandCallback
	logs     []WebhookLogEntry
}

func NewWebhookChannel(token string, bus *events.Bus) *WebhookChannel {
	return &WebhookChannel{token: token, bus: bus}
}

// SetCallback registers the execution entry point. Passing nil detaches it.
func (w *WebhookChannel) SetCallback(cb CommandCallback) {
	w.mu.Lock()
	w.callback = cb
	w.mu.Unlock()
}

type webhookPayload struct {
	Token     string  `json:"token"`
	Action    string  `json:"action"`
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	OrderType string  `json:"order_type"`
	Price     float64 `json:"price"`
}

// Handle validates one inbound command. Validation fails fast: body, token,
// required fields, action, in that order. A bad token is still recorded in
// the command log; only the callback is withheld.
func (w *WebhookChannel) Handle(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "No data received",
		})
		return
	}

	if payload.Token != w.token {
		w.appendLog(c.ClientIP(), payload, "rejected", "Invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Invalid token",
		})
		return
	}

	if payload.Action == "" || payload.Symbol == "" {
		w.appendLog(c.ClientIP(), payload, "rejected", "Missing required fields")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Missing required fields",
		})
		return
	}

	action := strings.ToUpper(strings.TrimSpace(payload.Action))
	switch action {
	case "BUY", "SELL", "EXIT":
	default:
		w.appendLog(c.ClientIP(), payload, "rejected", "Invalid action")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid action",
		})
		return
	}

	cmd := strategy.Command{
		Action:    action,
		Symbol:    payload.Symbol,
		Quantity:  payload.Quantity,
		OrderType: payload.OrderType,
		Price:     payload.Price,
	}

	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()

	if cb == nil {
		w.appendLog(c.ClientIP(), payload, "accepted", "received but no callback set")
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "received but no callback set",
		})
		return
	}

	res := cb(c.Request.Context(), cmd)
	if res.Status == "error" {
		w.appendLog(c.ClientIP(), payload, "failed", res.Message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": res.Message,
		})
		return
	}

	w.appendLog(c.ClientIP(), payload, "executed", res.Message)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"result": res,
	})
}

func (w *WebhookChannel) appendLog(ip string, payload webhookPayload, status, msg string) {
	entry := WebhookLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		RemoteIP:  ip,
		Action:    payload.Action,
		Symbol:    payload.Symbol,
		Status:    status,
		Message:   msg,
	}

	w.mu.Lock()
	w.logs = append(w.logs, entry)
	if len(w.logs) > maxWebhookLogs {
		w.logs = w.logs[len(w.logs)-maxWebhookLogs:]
	}
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Publish(events.EventWebhookCommand, entry)
	}
}

// Logs returns up to limit most recent entries, oldest first. limit <= 0
// returns everything.
func (w *WebhookChannel) Logs(limit int) []WebhookLogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	logs := w.logs
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	out := make([]WebhookLogEntry, len(logs))
	copy(out, logs)
	return out
}

// getWebhookLogs serves GET /logs?limit=N (default 50).
func (s *Server) getWebhookLogs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	logs := s.Webhook.Logs(limit)
	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"logs":  logs,
	})
}
