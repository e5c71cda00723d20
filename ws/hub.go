package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"tradebull/config"
	"tradebull/game"
	"tradebull/metrics"
	"tradebull/state"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	ChannelChart  = "chart"
	ChannelStatus = "status"
)

// BetPlacer submits bets on behalf of the session user.
type BetPlacer interface {
	PlaceBet(ctx context.Context, side game.Side, amount float64, insurance bool) state.BetResult
}

// ServerMessage is the envelope of every message sent to a client
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is the envelope of every message received from a client
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type candlesPayload struct {
	RoundID int64         `json:"round_id"`
	Candles []game.Candle `json:"candles"`
}

type roundResetPayload struct {
	RoundID         int64 `json:"round_id"`
	PreviousRoundID int64 `json:"previous_round_id"`
}

type subscription struct {
	client  *ClientConnection
	channel string
	on      bool
}

type hubEvent struct {
	kind    string
	roundID int64
	prev    int64
	candles []game.Candle
	status  *state.StatusView
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans the candle stream and status out to WebSocket renderers.
// All client bookkeeping and the replay buffer live on the Run goroutine, so a
// subscriber's initial candles_replace and the appends that follow never overlap.
type Hub struct {
	metrics *metrics.Metrics
	bets    BetPlacer

	register   chan *ClientConnection
	unregister chan *ClientConnection
	subscribe  chan subscription
	events     chan hubEvent
	done       chan struct{}
	stopOnce   sync.Once

	// owned by Run
	clients map[*ClientConnection]bool
	roundID int64
	candles []game.Candle
	status  *state.StatusView
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Hub{
		metrics:    m,
		register:   make(chan *ClientConnection),
		unregister: make(chan *ClientConnection),
		subscribe:  make(chan subscription),
		events:     make(chan hubEvent, 100),
		done:       make(chan struct{}),
		clients:    make(map[*ClientConnection]bool),
	}
}

// SetBetPlacer wires the bet relay. Must be called before serving connections.
func (h *Hub) SetBetPlacer(b BetPlacer) {
	h.bets = b
}

// Run is the central message dispatcher
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 Renderer hub started")
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			log.Println("🛑 Renderer hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.metrics.RendererClients.Set(float64(len(h.clients)))
			log.Printf("✅ Client registered: %s (Total: %d)", client.ID, len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Printf("👋 Client unregistered: %s (Total: %d)", client.ID, len(h.clients))
			}

		case sub := <-h.subscribe:
			h.applySubscription(sub)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) drop(client *ClientConnection) {
	delete(h.clients, client)
	client.close()
	h.metrics.RendererClients.Set(float64(len(h.clients)))
}

func (h *Hub) applySubscription(sub subscription) {
	c := sub.client
	if !h.clients[c] {
		return
	}
	if !sub.on {
		delete(c.subscriptions, sub.channel)
		log.Printf("📴 Client %s unsubscribed from: %s", c.ID, sub.channel)
		return
	}

	c.subscriptions[sub.channel] = true
	log.Printf("📡 Client %s subscribed to: %s", c.ID, sub.channel)

	// Send initial data for the channel
	switch sub.channel {
	case ChannelChart:
		c.chartStale = !h.sendTo(c, ServerMessage{Type: "candles_replace", Data: h.replay()})
	case ChannelStatus:
		if h.status != nil {
			h.sendTo(c, ServerMessage{Type: "status", Data: h.status})
		}
	}
}

func (h *Hub) replay() candlesPayload {
	candles := make([]game.Candle, len(h.candles))
	copy(candles, h.candles)
	return candlesPayload{RoundID: h.roundID, Candles: candles}
}

func (h *Hub) dispatch(ev hubEvent) {
	switch ev.kind {
	case "reset":
		h.roundID = ev.roundID
		h.candles = h.candles[:0]
		h.broadcast(ChannelChart, ServerMessage{
			Type: "round_reset",
			Data: roundResetPayload{RoundID: ev.roundID, PreviousRoundID: ev.prev},
		})

	case "append":
		if ev.roundID != h.roundID {
			log.Printf("⚠️  Dropping candles for round %d (current %d)", ev.roundID, h.roundID)
			return
		}
		h.candles = append(h.candles, ev.candles...)
		h.broadcast(ChannelChart, ServerMessage{
			Type: "candles_append",
			Data: candlesPayload{RoundID: ev.roundID, Candles: ev.candles},
		})

	case "replace":
		h.roundID = ev.roundID
		h.candles = append(h.candles[:0], ev.candles...)
		h.broadcast(ChannelChart, ServerMessage{Type: "candles_replace", Data: h.replay()})

	case "status":
		h.status = ev.status
		h.broadcast(ChannelStatus, ServerMessage{Type: "status", Data: ev.status})
	}
}

// broadcast sends message to all clients subscribed to a channel.
// A chart client that missed a message gets a full candles_replace instead, so its
// series never has a gap.
func (h *Hub) broadcast(channel string, message ServerMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message for %s: %v", channel, err)
		return
	}

	var replay []byte
	for client := range h.clients {
		if !client.subscriptions[channel] {
			continue
		}
		if channel == ChannelChart && client.chartStale {
			if replay == nil {
				if replay, err = json.Marshal(ServerMessage{Type: "candles_replace", Data: h.replay()}); err != nil {
					log.Printf("❌ Failed to marshal replay: %v", err)
					return
				}
			}
			client.chartStale = !h.enqueue(client, replay)
			continue
		}
		if !h.enqueue(client, data) && channel == ChannelChart {
			client.chartStale = true
		}
	}
}

func (h *Hub) sendTo(c *ClientConnection, message ServerMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal %s for client %s: %v", message.Type, c.ID, err)
		return false
	}
	return h.enqueue(c, data)
}

func (h *Hub) enqueue(c *ClientConnection, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		// Client's send channel is full, skip
		h.metrics.RendererDropped.Inc()
		log.Printf("⚠️  Client %s send buffer full, skipping message", c.ID)
		return false
	}
}

func (h *Hub) post(ev hubEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// ResetRound tells renderers to clear the chart for a new round.
func (h *Hub) ResetRound(roundID, previousRoundID int64) {
	h.post(hubEvent{kind: "reset", roundID: roundID, prev: previousRoundID})
}

// AppendCandles sends newly completed candles.
func (h *Hub) AppendCandles(roundID int64, candles []game.Candle) {
	h.post(hubEvent{kind: "append", roundID: roundID, candles: append([]game.Candle(nil), candles...)})
}

// ReplaceCandles sends the full candle series of a round.
func (h *Hub) ReplaceCandles(roundID int64, candles []game.Candle) {
	h.post(hubEvent{kind: "replace", roundID: roundID, candles: append([]game.Candle(nil), candles...)})
}

// PublishStatus sends the latest status view.
func (h *Hub) PublishStatus(status state.StatusView) {
	h.post(hubEvent{kind: "status", status: &status})
}

// HandleWS is the single WebSocket endpoint
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 WebSocket connection from:", r.RemoteAddr)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &ClientConnection{
		ID:            uuid.NewString(),
		hub:           h,
		conn:          conn,
		subscriptions: make(map[string]bool),
		send:          make(chan []byte, config.WSSendBuffer),
		closed:        make(chan struct{}),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
