package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// historyLimit parses ?limit=N with a default and ceiling.
func historyLimit(c *gin.Context, def, max int) (int, bool) {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return 0, false
		}
		limit = n
	}
	if limit > max {
		limit = max
	}
	return limit, true
}

func (s *Server) getStatus(c *gin.Context) {
	st := s.Controller.Status()
	c.JSON(http.StatusOK, gin.H{
		"strategy":      st,
		"mode":          s.Meta.Mode,
		"underlying":    s.Meta.Underlying,
		"use_mock_feed": s.Meta.UseMockFeed,
		"version":       s.Meta.Version,
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_DISABLED", "metrics collection is not enabled")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) getPosition(c *gin.Context) {
	pos := s.Controller.OpenPosition()
	if pos == nil {
		c.JSON(http.StatusOK, gin.H{"has_position": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_position": true,
		"position":     pos,
	})
}

func (s *Server) getTrades(c *gin.Context) {
	limit, ok := historyLimit(c, 100, 500)
	if !ok {
		return
	}
	trades := s.Controller.TradeHistory(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(trades),
		"trades": trades,
	})
}

func (s *Server) getSignals(c *gin.Context) {
	limit, ok := historyLimit(c, 100, 500)
	if !ok {
		return
	}
	signals := s.Controller.SignalHistory(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}

func (s *Server) startStrategy(c *gin.Context) {
	s.Controller.Start()
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) stopStrategy(c *gin.Context) {
	s.Controller.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// runOnce triggers a single evaluation cycle outside the scheduler, useful
// for manual checks and dry runs.
func (s *Server) runOnce(c *gin.Context) {
	res := s.Controller.RunIteration(c.Request.Context())
	status := http.StatusOK
	if res.Status == "stopped" {
		status = http.StatusConflict
	}
	c.JSON(status, res)
}

func (s *Server) closeAllPositions(c *gin.Context) {
	trades, err := s.Controller.CloseAllPositions(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "BROKER_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"closed": len(trades),
		"trades": trades,
	})
}
