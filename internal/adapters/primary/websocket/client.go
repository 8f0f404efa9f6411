package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize = 256
)

// ErrClientClosed is returned when delivering to a closed connection.
var ErrClientClosed = errors.New("websocket client closed")

// SubscriptionType is the action of an inbound subscription message.
type SubscriptionType string

const (
	SubscriptionCreate    SubscriptionType = "CREATE"
	SubscriptionDelete    SubscriptionType = "DELETE"
	SubscriptionDeleteAll SubscriptionType = "DELETE_ALL"
)

// SubscriptionMessage is sent by the browser to manage its interests.
type SubscriptionMessage struct {
	SubscriptionType SubscriptionType `json:"subscriptionType"`
	Event            *SubscribedEvent `json:"event,omitempty"`
}

// SubscribedEvent names what a subscription is about. The opcode is
// accepted for compatibility and not used for matching.
type SubscribedEvent struct {
	Opcode     string           `json:"opcode"`
	ObjectType domain.EventType `json:"objectType"`
	ObjectID   domain.EventID   `json:"objectId"`
}

// EventMessage is the outbound frame for a delivered event.
type EventMessage struct {
	domain.Event
	Timestamp int64 `json:"timestamp"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan EventMessage
	done   chan struct{}
	id     string
	userID string

	closeOnce sync.Once
	logger    *slog.Logger
}

var _ ports.Subscriber = (*Client)(nil)

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan EventMessage, sendBufferSize),
		done:   make(chan struct{}),
		id:     id,
		userID: userID,
		logger: logger.With("client_id", id, "user_id", userID),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Deliver queues event for writing. It fails when the connection is closed
// or the buffer stays full until ctx ends; either way the connection is
// closed so the browser reconnects and resubscribes.
func (c *Client) Deliver(ctx context.Context, event domain.Event) error {
	msg := EventMessage{Event: event, Timestamp: time.Now().Unix()}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		c.logger.Warn("client send buffer full, closing connection")
		c.Close()
		return ctx.Err()
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Run starts both pumps and blocks until the connection ends.
func (c *Client) Run() {
	go c.WritePump()
	c.ReadPump()
}

// ReadPump pumps subscription messages from the websocket connection to the
// hub. When it returns, every subscription of the client is gone.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnsubscribeAll(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the send buffer to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal subscription message", "error", err)
		return
	}
	c.apply(msg)
}

// apply executes one subscription message against the hub.
func (c *Client) apply(msg SubscriptionMessage) {
	if msg.SubscriptionType == SubscriptionDeleteAll {
		c.hub.UnsubscribeAll(c)
		return
	}

	if msg.Event == nil {
		c.logger.Warn("subscription message without event", "type", msg.SubscriptionType)
		return
	}
	if !msg.Event.ObjectType.IsValid() {
		c.logger.Warn("subscription for unknown object type", "object_type", msg.Event.ObjectType)
		return
	}
	key := domain.NewSubscriptionKey(msg.Event.ObjectType, msg.Event.ObjectID)

	switch msg.SubscriptionType {
	case SubscriptionCreate:
		c.hub.Subscribe(c, key)
	case SubscriptionDelete:
		c.hub.Unsubscribe(ports.SubscriptionHandle{Subscriber: c, Key: key})
	default:
		c.logger.Debug("received unknown subscription type", "type", msg.SubscriptionType)
	}
}
