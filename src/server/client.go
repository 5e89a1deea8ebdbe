package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"quote-streamer/src/helpers"
	"quote-streamer/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var (
	errClientGone = errors.New("websocket client disconnected")
	errClientSlow = errors.New("websocket client send buffer full")
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one WebSocket connection. It is also the transport of the
// dispatcher registered for it.
type Client struct {
	hub  *APIServer
	conn *websocket.Conn
	key  models.SubscriberKey
	send chan outbound

	// id of the registry subscription this connection started, owned by the
	// read pump
	subscriptionID string

	closeOnce sync.Once
	closed    chan struct{}
}

type outbound struct {
	kind    int
	payload []byte
}

func newClient(hub *APIServer, conn *websocket.Conn, key models.SubscriberKey) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		key:    key,
		send:   make(chan outbound, sendBuffer),
		closed: make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// Transport
// -----------------------------------------------------------------------------

func (c *Client) Name() string { return "websocket" }

// Send queues one encoded quote. A full queue means the client cannot keep up
// and ends its subscription.
func (c *Client) Send(_ models.SubscriberKey, payload []byte) error {
	kind := websocket.TextMessage
	if c.hub.deps.Codec != nil && c.hub.deps.Codec.Name() != "json" {
		kind = websocket.BinaryMessage
	}
	select {
	case <-c.closed:
		return helpers.NewTransportError(c.key.String(), errClientGone)
	default:
	}
	select {
	case c.send <- outbound{kind: kind, payload: payload}:
		return nil
	case <-c.closed:
		return helpers.NewTransportError(c.key.String(), errClientGone)
	default:
		return helpers.NewTransportError(c.key.String(), errClientSlow)
	}
}

func (c *Client) reply(ack models.MCommandAck) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case c.send <- outbound{kind: websocket.TextMessage, payload: data}:
	case <-c.closed:
	default:
		c.hub.Logger.Warning("Dropping ack for %s, send buffer full", c.key)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.conn.Close()
	})
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.close()
		if c.subscriptionID != "" {
			c.hub.deps.Registry.StopSubscription(c.key, c.subscriptionID)
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.hub.Logger.Info("WebSocket client %s disconnected", c.key)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msg.kind, msg.payload); err != nil {
				c.hub.Logger.Info("Write error for %s: %v", c.key, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
