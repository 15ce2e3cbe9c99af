package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"crossServer/config"
	"crossServer/game"
	"crossServer/play"
	"crossServer/walk"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client is one websocket connection and the game it plays.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	game   *play.Game
	logger *zap.Logger

	// ctx is cancelled when the connection goes away; in-flight ledger calls
	// started by this client use it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues a frame without blocking. It reports false when the frame
// was dropped.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close tears down the game and the send queue. Called by the hub only.
func (c *Client) close() {
	c.cancel()
	c.game.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("❌ Failed to marshal frame", zap.Error(err))
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn("⚠️ Client send buffer full, skipping message")
	}
}

func (c *Client) sendError(request string, err error) {
	c.sendJSON(errorFrame{Type: "error", Request: request, Error: err.Error()})
}

func (c *Client) sendState(kind string) {
	c.sendJSON(stateFrame{Type: kind, State: c.game.Snapshot()})
}

func (c *Client) sendHistory() {
	if c.hub.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	rounds, err := c.hub.history(ctx, config.DefaultHistorySize)
	if err != nil {
		c.logger.Warn("⚠️ Failed to load round history", zap.Error(err))
		return
	}
	c.sendJSON(historyFrame{Type: "round_history", Rounds: rounds})
}

// listener turns walk events into frames for this connection.
func (c *Client) listener() walk.Listener {
	return walk.ListenerFuncs{
		LaneChanged: func(lane int) {
			snap := c.game.Snapshot()
			c.sendJSON(laneFrame{Type: "lane_changed", Lane: lane, Multiplier: snap.Multiplier})
		},
		Terminal: func(win bool, amount decimal.Decimal, kind game.AccidentKind) {
			c.sendJSON(terminalFrame{
				Type:     "terminal",
				Win:      win,
				Amount:   amount,
				Accident: kind,
				State:    c.game.Snapshot(),
			})
		},
		SessionReset: func() {
			c.sendState("session_reset")
		},
	}
}

/* =========================
   PUMPS
========================= */

// writePump sends queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("❌ Write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads requests until the connection fails, then unregisters.
func (c *Client) readPump() {
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
		return c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("❌ Read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.logger.Warn("❌ Failed to parse message", zap.Error(err))
			c.sendError("", errors.New("malformed message"))
			continue
		}
		if msg.Data == nil {
			msg.Data = map[string]interface{}{}
		}

		c.handleMessage(msg)
	}
}

/* =========================
   REQUESTS
========================= */

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "select_lane":
		lane, err := intField(msg.Data, "lane")
		if err == nil {
			err = c.game.SelectLane(lane)
		}
		c.reply(msg.Type, err)

	case "set_bet":
		amount, err := decimalField(msg.Data, "amount")
		if err == nil {
			err = c.game.SetBet(amount)
		}
		c.reply(msg.Type, err)

	case "set_difficulty":
		tier, err := tierField(msg.Data, "difficulty")
		if err == nil {
			err = c.game.SetDifficulty(tier)
		}
		c.reply(msg.Type, err)

	case "set_client_seed":
		seed, _ := msg.Data["seed"].(string)
		c.game.SetClientSeed(seed)
		c.reply(msg.Type, nil)

	case "start_game":
		// Live rounds wait on the ledger; keep reading meanwhile so cash out
		// and reset stay responsive.
		go func() {
			if err := c.game.Start(c.ctx); err != nil {
				c.sendError(msg.Type, err)
				return
			}
			c.sendState("round_started")
		}()

	case "cash_out":
		amount, err := c.game.CashOut()
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		c.sendJSON(cashOutFrame{Type: "cashed_out", Amount: amount})

	case "reset":
		c.game.Reset()

	case "replay_last":
		go func() {
			if err := c.game.ReplayLast(c.ctx); err != nil {
				c.sendError(msg.Type, err)
				return
			}
			c.sendState("replay_started")
		}()

	case "fetch_last":
		go func() {
			out, err := c.game.LastOutcome(c.ctx)
			if err != nil {
				c.sendError(msg.Type, err)
				return
			}
			c.sendJSON(outcomeFrame{Type: "last_outcome", Outcome: out})
		}()

	case "refresh_balance":
		go func() {
			if err := c.game.RefreshBalance(c.ctx); err != nil {
				c.sendError(msg.Type, err)
				return
			}
			c.sendState("state")
		}()

	case "get_state":
		c.sendState("state")

	default:
		c.logger.Warn("⚠️ Unknown message type", zap.String("type", msg.Type))
		c.sendError(msg.Type, errors.New("unknown message type"))
	}
}

// reply answers a selection request with the new state or the error.
func (c *Client) reply(request string, err error) {
	if err != nil {
		c.sendError(request, err)
		return
	}
	c.sendState("state")
}
