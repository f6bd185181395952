package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"headset-bridge/internal/headset"
	"headset-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultStreamBuffer = 32
)

// StreamOptions controls the WebSocket event stream.
type StreamOptions struct {
	// AllowedOrigins limits which browser origins may connect. Empty allows any.
	AllowedOrigins []string

	PingInterval time.Duration
	WriteTimeout time.Duration
	Buffer       int
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Buffer <= 0 {
		o.Buffer = defaultStreamBuffer
	}
	return o
}

// StreamMessage is one frame on the event stream.
type StreamMessage struct {
	Type      string          `json:"type"`
	Event     *headset.Event  `json:"event,omitempty"`
	Status    *headset.Status `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

const (
	messageStatus = "status"
	messageEvent  = "event"
	messageClosed = "closed"
)

// Events upgrades to a WebSocket and streams orchestrator events until the client goes
// away or the orchestrator closes. The first frame is the current status.
func (h Handlers) Events(c *gin.Context) {
	opts := h.Stream.withDefaults()
	log := logger.FromGin(c)

	// Subscribe before the upgrade so nothing published after the handshake is missed.
	events, unsubscribe := h.Headset.Subscribe(opts.Buffer)
	defer unsubscribe()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err, "origin", c.GetHeader("Origin"))
		return
	}
	defer conn.Close()

	log.Info("event stream opened", "remote_addr", c.Request.RemoteAddr)

	// Deadlines left over from the HTTP server are replaced: a client is alive while it
	// answers pings.
	pongWait := 2*opts.PingInterval + opts.WriteTimeout
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go readUntilClosed(conn, cancel)

	st := h.Headset.Status()
	if err := writeMessage(conn, opts.WriteTimeout, StreamMessage{Type: messageStatus, Status: &st, Timestamp: time.Now().UTC()}); err != nil {
		log.Warn("event stream write failed", "err", err)
		return
	}

	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("event stream closed by client", "remote_addr", c.Request.RemoteAddr)
			return

		case ev, ok := <-events:
			if !ok {
				_ = writeMessage(conn, opts.WriteTimeout, StreamMessage{Type: messageClosed, Timestamp: time.Now().UTC()})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(opts.WriteTimeout))
				return
			}
			if err := writeMessage(conn, opts.WriteTimeout, StreamMessage{Type: messageEvent, Event: &ev, Timestamp: time.Now().UTC()}); err != nil {
				log.Warn("event stream write failed", "err", err)
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteTimeout)); err != nil {
				log.Warn("event stream ping failed", "err", err)
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, timeout time.Duration, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// readUntilClosed drains client frames so control messages are processed, and cancels
// once the client disconnects.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
