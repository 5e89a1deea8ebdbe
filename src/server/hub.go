package server

import (
	"encoding/json"
	"net/http"
	"net/netip"

	"quote-streamer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

func (s *APIServer) startHub() {
	s.hubOnce.Do(func() { go s.runHub() })
}

// runHub tracks WebSocket clients and keeps the latest-price snapshot. It
// consumes its own generator subscription and never reads generator state.
func (s *APIServer) runHub() {
	defer close(s.hubDone)

	var quotes <-chan models.MQuote
	if s.deps.Feed != nil {
		var id uint64
		id, quotes = s.deps.Feed.Subscribe()
		defer s.deps.Feed.Unsubscribe(id)
	}

	for {
		select {
		case <-s.ctx.Done():
			// Close every client; their read pumps stop the dispatchers
			for client := range s.clients {
				delete(s.clients, client)
				client.close()
			}
			s.wsClients.Store(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.wsClients.Store(int64(len(s.clients)))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				s.wsClients.Store(int64(len(s.clients)))
			}

		case q, ok := <-quotes:
			if !ok {
				// generator shut down; keep serving the last snapshot
				quotes = nil
				continue
			}
			s.stateMutex.Lock()
			s.latest[q.Symbol] = q
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

// LatestPrices returns a copy of the snapshot.
func (s *APIServer) LatestPrices() map[models.Symbol]models.MQuote {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	out := make(map[models.Symbol]models.MQuote, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	key, err := netip.ParseAddrPort(c.Request.RemoteAddr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot determine remote address"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn, models.NewSubscriberKey(key.Addr(), key.Port()))

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// wsCommand is the JSON a WebSocket client sends to control its stream.
type wsCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.close()
		return
	}

	var ack models.MCommandAck
	switch cmd.Command {
	case "subscribe":
		symbols := models.ParseSymbols(cmd.Symbols)
		id, err := s.deps.Registry.Register(client.key, symbols, client)
		if err != nil {
			ack = models.MCommandAck{Status: "error", Error: err.Error(), Key: client.key.String()}
			break
		}
		client.subscriptionID = id
		ack = models.MCommandAck{Status: "ok", SubscriptionID: id, Key: client.key.String(), Symbols: withoutUnknown(symbols)}

	case "unsubscribe":
		if client.subscriptionID != "" {
			s.deps.Registry.StopSubscription(client.key, client.subscriptionID)
			client.subscriptionID = ""
		}
		ack = models.MCommandAck{Status: "ok", Key: client.key.String()}

	default:
		ack = models.MCommandAck{Status: "error", Error: "unknown command " + cmd.Command}
	}

	client.reply(ack)
}
