// Package testutil provides an in-process price feed for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// FeedServer speaks the feed protocol: text frames of {"price","timestamp"}
// on /ws and POST /reset. Tests drive it explicitly; nothing is sent on a timer.
type FeedServer struct {
	Server *httptest.Server

	upgrader websocket.Upgrader

	mu          sync.Mutex
	conns       map[*websocket.Conn]struct{}
	total       int
	resetStatus int
	resetCalls  int
	resetGate   chan struct{}
	replay      [][]byte
}

// -----------------------------------------------------------------------------

func NewFeedServer(t testing.TB) *FeedServer {
	t.Helper()

	f := &FeedServer{
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:       make(map[*websocket.Conn]struct{}),
		resetStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleStream)
	mux.HandleFunc("/reset", f.handleReset)
	f.Server = httptest.NewServer(mux)

	t.Cleanup(f.Close)
	return f
}

// Addr is host:port of the listener.
func (f *FeedServer) Addr() string {
	return strings.TrimPrefix(f.Server.URL, "http://")
}

func (f *FeedServer) StreamURL() string {
	return "ws://" + f.Addr() + "/ws"
}

func (f *FeedServer) ResetURL() string {
	return f.Server.URL + "/reset"
}

// Close drops every client and stops the listener.
func (f *FeedServer) Close() {
	f.DropConnections()
	f.mu.Lock()
	if f.resetGate != nil {
		close(f.resetGate)
		f.resetGate = nil
	}
	f.mu.Unlock()
	f.Server.Close()
}

// -----------------------------------------------------------------------------
// Stream side
// -----------------------------------------------------------------------------

func (f *FeedServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	for _, frame := range f.replay {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			f.mu.Unlock()
			_ = conn.Close()
			return
		}
	}
	f.conns[conn] = struct{}{}
	f.total++
	f.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	_ = conn.Close()
}

// SetReplay makes every new connection receive ticks before anything else,
// the way the real feed replays its history.
func (f *FeedServer) SetReplay(ticks ...Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replay = f.replay[:0]
	for _, t := range ticks {
		f.replay = append(f.replay, t.frame())
	}
}

// Tick is one record as the feed sends it.
type Tick struct {
	Price     float64
	Timestamp string
}

func (t Tick) frame() []byte {
	data, _ := json.Marshal(map[string]interface{}{"price": t.Price, "timestamp": t.Timestamp})
	return data
}

// SendTick writes a record to every live connection.
func (f *FeedServer) SendTick(price float64, timestamp string) {
	f.SendRaw(string(Tick{Price: price, Timestamp: timestamp}.frame()))
}

// SendRaw writes an arbitrary text frame to every live connection.
func (f *FeedServer) SendRaw(frame string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

// CloseConnections sends a close frame to every client.
func (f *FeedServer) CloseConnections(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	}
}

// DropConnections closes every socket without a close frame.
func (f *FeedServer) DropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.Close()
		delete(f.conns, conn)
	}
}

// Connections is the number of clients currently attached.
func (f *FeedServer) Connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// TotalConnections counts every accepted upgrade.
func (f *FeedServer) TotalConnections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// -----------------------------------------------------------------------------
// Reset side
// -----------------------------------------------------------------------------

func (f *FeedServer) handleReset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	f.resetCalls++
	gate := f.resetGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	status := f.resetStatus
	if status >= 200 && status < 300 {
		f.replay = f.replay[:0]
	}
	f.mu.Unlock()

	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"status":"reset"}`))
}

// FailResets makes /reset answer with status until called again with 200.
func (f *FeedServer) FailResets(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetStatus = status
}

// HoldResets parks /reset requests until the returned release func is called.
func (f *FeedServer) HoldResets() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.resetGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.resetGate == gate {
				f.resetGate = nil
				close(gate)
			}
			f.mu.Unlock()
		})
	}
}

func (f *FeedServer) ResetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetCalls
}
