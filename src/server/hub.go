package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"price-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const snapshotTimeout = 2 * time.Second

// viewerReply is an answer addressed to a single viewer.
type viewerReply struct {
	client  *Client
	message interface{}
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It is the only writer to, and the
// only closer of, every registered client's send channel.
func (s *StatusServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.metrics.SetViewers(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.metrics.SetViewers(len(s.clients))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropViewer(client)
			}

		case reply := <-s.viewers:
			reply <- len(s.clients)

		case r := <-s.replies:
			// Viewers already dropped get nothing.
			if _, ok := s.clients[r.client]; ok {
				s.deliver(r.client, r.message)
			}

		case <-s.resync:
			s.resyncViewers()

		case message := <-s.broadcast:
			for client := range s.clients {
				s.deliver(client, message)
			}
		}
	}
}

// deliver queues message for client, dropping the viewer when it lags.
func (s *StatusServer) deliver(client *Client, message interface{}) {
	select {
	case client.send <- message:
	default:
		s.Logger.Info("Viewer %s too slow, disconnecting", client.addr)
		s.dropViewer(client)
	}
}

func (s *StatusServer) dropViewer(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.metrics.SetViewers(len(s.clients))
}

// resyncViewers replaces whatever viewers missed with a fresh snapshot.
// Queued updates are discarded first since the snapshot covers them.
func (s *StatusServer) resyncViewers() {
	for drained := false; !drained; {
		select {
		case <-s.broadcast:
		default:
			drained = true
		}
	}

	initial, ok := s.initialMessage()
	if !ok {
		return
	}
	for client := range s.clients {
		s.deliver(client, initial)
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// OnSessionUpdate queues update for every viewer without blocking. Updates
// carry no series, so when one has to be dropped (a RESET included) viewers
// are sent a full snapshot instead.
func (s *StatusServer) OnSessionUpdate(update models.MSessionUpdate) {
	select {
	case s.broadcast <- update:
	default:
		s.Logger.Warning("Viewer queue full, dropped %s update, scheduling resync", update.Type)
		select {
		case s.resync <- struct{}{}:
		default:
		}
	}
}

// ViewerCount asks the hub how many viewers are attached.
func (s *StatusServer) ViewerCount() int {
	reply := make(chan int, 1)
	select {
	case s.viewers <- reply:
		return <-reply
	case <-s.quit:
		return 0
	}
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

func (s *StatusServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		addr: conn.RemoteAddr().String(),
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	// INITIAL goes first; updates from the hub follow once registered.
	if initial, ok := s.initialMessage(); ok {
		client.send <- initial
	}

	select {
	case s.register <- client:
	case <-s.quit:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *StatusServer) initialMessage() (models.MViewerInitial, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snap, err := s.session.Snapshot(ctx)
	if err != nil {
		s.Logger.Warning("No snapshot for viewer: %v", err)
		return models.MViewerInitial{}, false
	}
	return models.MViewerInitial{Type: "INITIAL", Snapshot: forDisplay(snap)}, true
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage answers viewer commands. Only "snapshot" is understood;
// anything unparsable disconnects the viewer.
func (s *StatusServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MViewerCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse viewer command: %v, disconnecting viewer", err)
		_ = client.conn.Close()
		return
	}

	if cmd.Command != "snapshot" {
		return
	}

	initial, ok := s.initialMessage()
	if !ok {
		return
	}
	select {
	case s.replies <- viewerReply{client: client, message: initial}:
	case <-s.quit:
	}
}
