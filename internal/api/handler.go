package api

import (
	"net/http"
	"time"

	"options-core/internal/events"
	"options-core/internal/monitor"
	"options-core/internal/strategy"

	"github.com/gin-gonic/gin"
)

// Server wires the webhook command channel and the control API around the
// strategy controller.
type Server struct {
	Router     *gin.Engine
	Bus        *events.Bus
	Controller *strategy.Controller
	Webhook    *WebhookChannel
	Auth       OperatorAuth
	Metrics    *monitor.SystemMetrics
	Meta       SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Mode        strategy.Mode
	Underlying  string
	UseMockFeed bool
	Version     string
}

// OperatorAuth holds the single-operator credentials for the control API.
type OperatorAuth struct {
	Username     string
	PasswordHash string // bcrypt
	JWTSecret    string
}

func NewServer(bus *events.Bus, controller *strategy.Controller, webhook *WebhookChannel, auth OperatorAuth, metrics *monitor.SystemMetrics, meta SystemMeta) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:     r,
		Bus:        bus,
		Controller: controller,
		Webhook:    webhook,
		Auth:       auth,
		Metrics:    metrics,
		Meta:       meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	// Webhook channel: token-authenticated in the payload, not via JWT.
	s.Router.POST("/webhook", s.Webhook.Handle)
	s.Router.GET("/logs", s.getWebhookLogs)

	api := s.Router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.loginOperator)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.Auth.JWTSecret))
		{
			protected.GET("/status", s.getStatus)
			protected.GET("/metrics", s.getMetrics)
			protected.GET("/position", s.getPosition)
			protected.GET("/trades", s.getTrades)
			protected.GET("/signals", s.getSignals)

			protected.POST("/strategy/start", s.startStrategy)
			protected.POST("/strategy/stop", s.stopStrategy)
			protected.POST("/strategy/run-once", s.runOnce)
			protected.POST("/positions/close-all", s.closeAllPositions)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
