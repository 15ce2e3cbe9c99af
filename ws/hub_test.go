package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crossServer/game"
	"crossServer/play"
	"crossServer/walk"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type safeSampler struct{}

func (safeSampler) Float64() float64 { return 0.999999 }

func demoFactory(player string, listener walk.Listener, onRound play.RoundListener) (*play.Game, error) {
	return play.NewGame(play.Options{
		Mode:    play.ModeDemo,
		Player:  player,
		Balance: decimal.NewFromInt(1000),
		Timing:  walk.Timing{Tick: 2 * time.Millisecond, Settle: 2 * time.Millisecond, Present: time.Millisecond},
		Sampler: func(string, string, uint64) game.Sampler {
			return safeSampler{}
		},
		Listener: listener,
		OnRound:  onRound,
	})
}

func dial(t *testing.T, srv *httptest.Server, player string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player=" + player
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

type frame struct {
	Type    string                 `json:"type"`
	Lane    int                    `json:"lane"`
	Win     bool                   `json:"win"`
	Amount  string                 `json:"amount"`
	Error   string                 `json:"error"`
	Request string                 `json:"request"`
	State   map[string]interface{} `json:"state"`
	Round   map[string]interface{} `json:"round"`
}

// readUntil reads frames until one of type want arrives and returns every
// frame read on the way.
func readUntil(t *testing.T, conn *websocket.Conn, want string) []frame {
	t.Helper()
	var seen []frame
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v (seen %d frames)", want, err, len(seen))
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		seen = append(seen, f)
		if f.Type == want {
			return seen
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data map[string]interface{}) {
	t.Helper()
	if err := conn.WriteJSON(ClientMessage{Type: msgType, Data: data}); err != nil {
		t.Fatalf("write %s failed: %v", msgType, err)
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(demoFactory, nil, nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func TestDemoRoundOverWebsocket(t *testing.T) {
	_, srv := startHub(t)

	conn := dial(t, srv, "alice")
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, "set_difficulty", map[string]interface{}{"difficulty": "easy"})
	readUntil(t, conn, "state")
	send(t, conn, "select_lane", map[string]interface{}{"lane": 3})
	readUntil(t, conn, "state")
	send(t, conn, "set_bet", map[string]interface{}{"amount": "10"})
	readUntil(t, conn, "state")
	send(t, conn, "start_game", nil)

	frames := readUntil(t, conn, "terminal")
	var lanes []int
	for _, f := range frames {
		if f.Type == "lane_changed" {
			lanes = append(lanes, f.Lane)
		}
	}
	if len(lanes) != 3 || lanes[0] != 1 || lanes[2] != 3 {
		t.Errorf("expected lanes [1 2 3], got %v", lanes)
	}

	term := frames[len(frames)-1]
	if !term.Win || term.Amount != "36" {
		t.Errorf("expected a win of 36, got %+v", term)
	}
	if term.State["balance"] != "1026" {
		t.Errorf("expected balance 1026, got %v", term.State["balance"])
	}

	round := readUntil(t, conn, "recent_round")
	last := round[len(round)-1]
	if last.Round["player"] != "alice" || last.Round["win"] != true {
		t.Errorf("unexpected broadcast round %v", last.Round)
	}
}

func TestBadRequestsGetErrors(t *testing.T) {
	_, srv := startHub(t)

	conn := dial(t, srv, "bob")
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, "select_lane", map[string]interface{}{"lane": 42})
	f := readUntil(t, conn, "error")
	if got := f[len(f)-1]; got.Request != "select_lane" || got.Error != game.ErrInvalidLane.Error() {
		t.Errorf("unexpected error frame %+v", got)
	}

	send(t, conn, "set_difficulty", map[string]interface{}{"difficulty": "impossible"})
	f = readUntil(t, conn, "error")
	if got := f[len(f)-1]; got.Error != play.ErrInvalidDifficulty.Error() {
		t.Errorf("unexpected error frame %+v", got)
	}

	send(t, conn, "launch_rocket", nil)
	f = readUntil(t, conn, "error")
	if got := f[len(f)-1]; got.Request != "launch_rocket" {
		t.Errorf("unexpected error frame %+v", got)
	}
}

func TestHubCountsClients(t *testing.T) {
	hub, srv := startHub(t)

	a := dial(t, srv, "a")
	b := dial(t, srv, "b")
	readUntil(t, a, "state")
	readUntil(t, b, "state")

	waitClients(t, hub, 2)
	a.Close()
	waitClients(t, hub, 1)
	b.Close()
	waitClients(t, hub, 0)
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
