package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"tradebull/config"
	"tradebull/game"
	"tradebull/state"

	"github.com/gorilla/websocket"
)

// ClientConnection represents a connected renderer and its subscriptions
type ClientConnection struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn

	// owned by the hub goroutine
	subscriptions map[string]bool
	chartStale    bool // a chart message was dropped, resend the full series

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

type channelRequest struct {
	Channel string `json:"channel"`
}

type placeBetRequest struct {
	Side      game.Side `json:"side"`
	Amount    float64   `json:"amount"`
	Insurance bool      `json:"insurance"`
}

func (c *ClientConnection) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// writePump sends messages from the send channel to the WebSocket
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// readPump reads messages from the WebSocket and handles subscriptions/requests
func (c *ClientConnection) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			c.sendError("invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming client messages
func (c *ClientConnection) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "subscribe", "unsubscribe":
		var req channelRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || !validChannel(req.Channel) {
			c.sendError("unknown channel")
			return
		}
		c.requestSubscription(req.Channel, msg.Type == "subscribe")

	case "place_bet":
		c.handlePlaceBet(msg.Data)

	default:
		log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *ClientConnection) requestSubscription(channel string, on bool) {
	select {
	case c.hub.subscribe <- subscription{client: c, channel: channel, on: on}:
	case <-c.hub.done:
	}
}

// handlePlaceBet relays a bet and replies only to this client
func (c *ClientConnection) handlePlaceBet(data json.RawMessage) {
	var req placeBetRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendPrivate(ServerMessage{Type: "bet_result", Data: state.BetResult{Message: "ERROR invalid bet request"}})
		return
	}
	if c.hub.bets == nil {
		c.sendPrivate(ServerMessage{Type: "bet_result", Data: state.BetResult{Message: "ERROR betting unavailable"}})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.BackendRequestTimeout)
	defer cancel()

	result := c.hub.bets.PlaceBet(ctx, req.Side, req.Amount, req.Insurance)
	c.sendPrivate(ServerMessage{Type: "bet_result", Data: result})
}

func (c *ClientConnection) sendError(msg string) {
	c.sendPrivate(ServerMessage{Type: "error", Data: map[string]string{"error": msg}})
}

// sendPrivate queues a message for this client only
func (c *ClientConnection) sendPrivate(message ServerMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("⚠️  Failed to marshal private message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.metrics.RendererDropped.Inc()
		log.Printf("⚠️  Client %s send buffer full, dropping %s", c.ID, message.Type)
	}
}

func validChannel(ch string) bool {
	return ch == ChannelChart || ch == ChannelStatus
}
