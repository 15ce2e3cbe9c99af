// Package ws serves the game over a single websocket endpoint. Every
// connection owns one play.Game; finished rounds are broadcast to all
// connections.
package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"crossServer/config"
	"crossServer/play"
	"crossServer/walk"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GameFactory builds the game of a new connection. player is the id the
// client asked for and may be empty.
type GameFactory func(player string, listener walk.Listener, onRound play.RoundListener) (*play.Game, error)

// HistoryFunc loads the latest rounds sent to a client when it connects.
type HistoryFunc func(ctx context.Context, limit int) ([]*play.Round, error)

// Hub tracks connections and fans out round broadcasts.
type Hub struct {
	newGame GameFactory
	history HistoryFunc
	logger  *zap.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	count atomic.Int64
}

func NewHub(newGame GameFactory, history HistoryFunc, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		newGame:    newGame,
		history:    history,
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 100),
		done:       make(chan struct{}),
	}
}

// Run is the central dispatcher. It returns when ctx is done, closing every
// connection still registered.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("🚀 Event hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.logger.Info("🛑 Event hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			h.logger.Info("✅ Client registered", zap.String("client", client.ID), zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.count.Store(int64(len(h.clients)))
			h.logger.Info("👋 Client unregistered", zap.String("client", client.ID), zap.Int("total", len(h.clients)))

		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.enqueue(message) {
					h.logger.Warn("⚠️ Client send buffer full, skipping message", zap.String("client", client.ID))
				}
			}
		}
	}
}

// Clients is the number of registered connections.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// BroadcastRound tells every connection about a finished round. It never
// blocks; a full queue drops the message.
func (h *Hub) BroadcastRound(round play.Round) {
	data, err := json.Marshal(roundFrame{Type: "recent_round", Round: round})
	if err != nil {
		h.logger.Error("❌ Failed to marshal round", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("⚠️ Broadcast queue full, dropping round", zap.String("round", round.ID))
	}
}

// HandleWS is the websocket endpoint. The optional "player" query parameter
// names the demo player.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("❌ WebSocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, config.WSSendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	client.logger = h.logger.With(zap.String("client", client.ID))

	player := r.URL.Query().Get("player")
	if player == "" {
		player = client.ID
	}
	g, err := h.newGame(player, client.listener(), h.BroadcastRound)
	if err != nil {
		h.logger.Error("❌ Failed to create game", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "game unavailable"),
			time.Now().Add(config.WSWriteDeadline))
		conn.Close()
		cancel()
		return
	}
	client.game = g

	h.logger.Info("📥 WebSocket connection", zap.String("remote", r.RemoteAddr), zap.String("player", g.Player()))
	select {
	case h.register <- client:
	case <-h.done:
		g.Close()
		conn.Close()
		cancel()
		return
	}

	go client.writePump()
	go client.readPump()

	client.sendState("state")
	client.sendHistory()
}
