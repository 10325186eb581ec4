package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"options-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope tags each streamed event with its kind.
type wsEnvelope struct {
	Event events.Event `json:"event"`
	Data  any          `json:"data"`
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	signals, unsubSignals := s.Bus.Subscribe(events.EventSignal, 100)
	defer unsubSignals()
	trades, unsubTrades := s.Bus.Subscribe(events.EventTrade, 100)
	defer unsubTrades()
	commands, unsubCommands := s.Bus.Subscribe(events.EventWebhookCommand, 100)
	defer unsubCommands()

	done := c.Request.Context().Done()
	for {
		var env wsEnvelope
		select {
		case msg, ok := <-signals:
			if !ok {
				return
			}
			env = wsEnvelope{Event: events.EventSignal, Data: msg}
		case msg, ok := <-trades:
			if !ok {
				return
			}
			env = wsEnvelope{Event: events.EventTrade, Data: msg}
		case msg, ok := <-commands:
			if !ok {
				return
			}
			env = wsEnvelope{Event: events.EventWebhookCommand, Data: msg}
		case <-done:
			return
		}
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
