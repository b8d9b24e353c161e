package handler

import (
	"net/http"
	"time"

	"anoa.com/isfportal/internal/modules/realtime/service"
	"anoa.com/isfportal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Tables whose changes are streamed. Profiles are never broadcast.
var streamedTables = map[string]bool{
	"events":        true,
	"announcements": true,
	"team_members":  true,
	"threads":       true,
}

const pingInterval = 30 * time.Second

type RealtimeHandler struct {
	broker   service.Broker
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(broker service.Broker) *RealtimeHandler {
	return &RealtimeHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	table := c.Param("table")
	if !streamedTables[table] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table: " + table})
		return
	}

	ctx := c.Request.Context()
	pubsub, err := h.broker.Subscribe(ctx, table)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("realtime subscribe failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime unavailable"})
		return
	}
	defer pubsub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := pubsub.Channel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// payload is already the JSON change event
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.Debug().Err(err).Str("table", table).Msg("realtime write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
