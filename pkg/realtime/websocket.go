package realtime

import (
	"net/http"
	"time"

	"anoa.com/sparkvest/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Relay upgrades the request and forwards every payload published on channel
// until the client disconnects or the request context ends.
func Relay(c *gin.Context, broker Broker, channel string) {
	log := logger.With("websocket")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	messages, stop, err := broker.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		return
	}
	defer stop()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("channel", channel).Msg("failed to write message")
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
