package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	domainuser "idpsupport/internal/domain/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one WebSocket connection bound to an authenticated user. It owns
// a read pump (dispatching inbound events to the coordinator) and a write
// pump (draining the send queue).
type Client struct {
	id          string
	userID      domainuser.ID
	conn        *websocket.Conn
	send        chan []byte
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewClient(conn *websocket.Conn, userID domainuser.ID, coordinator *Coordinator, logger *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(maxMessageSize)
	}
	return &Client{
		id:          uuid.NewString(),
		userID:      userID,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		coordinator: coordinator,
		logger:      logger,
	}
}

func (c *Client) ID() string            { return c.id }
func (c *Client) UserID() domainuser.ID { return c.userID }

// Emit queues an event for delivery. Never blocks: when the send buffer is
// full the event is dropped and the durable store remains the source of
// truth for what was missed.
func (c *Client) Emit(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log().Error("event payload encode failed", "error", err, "event", event)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		c.log().Error("event frame encode failed", "error", err, "event", event)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.log().Warn("send buffer full, dropping event", "event", event, "user_id", string(c.userID))
	}
}

// Run drives both pumps and blocks until the connection dies. The caller
// owns the goroutine.
func (c *Client) Run(ctx context.Context) {
	done := make(chan struct{})
	go c.writePump(done)
	c.readPump(ctx)
	close(done)
	c.coordinator.Disconnect(c)
	c.conn.Close()
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log().Debug("websocket read failed", "error", err, "user_id", string(c.userID))
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

func (c *Client) dispatch(ctx context.Context, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.Emit(EventError, "malformed event")
		return
	}
	switch envelope.Event {
	case EventJoinUser:
		var payload JoinUserPayload
		if !c.decode(envelope.Data, &payload) {
			return
		}
		c.coordinator.JoinUser(c, payload.UserID)
	case EventJoinChat:
		var payload JoinChatPayload
		if !c.decode(envelope.Data, &payload) {
			return
		}
		c.coordinator.JoinChat(ctx, c, payload.ChatID)
	case EventSendMessage:
		var payload SendMessagePayload
		if !c.decode(envelope.Data, &payload) {
			return
		}
		if payload.SenderID != "" && domainuser.ID(payload.SenderID) != c.userID {
			c.Emit(EventError, errIdentity)
			return
		}
		c.coordinator.SendMessage(ctx, c, payload.ChatID, payload.Text)
	case EventMarkAsRead:
		var payload MarkAsReadPayload
		if !c.decode(envelope.Data, &payload) {
			return
		}
		if payload.UserID != "" && domainuser.ID(payload.UserID) != c.userID {
			c.Emit(EventError, errIdentity)
			return
		}
		c.coordinator.MarkRead(ctx, c, payload.ChatID)
	default:
		c.Emit(EventError, "unknown event: "+envelope.Event)
	}
}

func (c *Client) decode(data json.RawMessage, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		c.Emit(EventError, "malformed event payload")
		return false
	}
	return true
}

func (c *Client) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

var _ Session = (*Client)(nil)
