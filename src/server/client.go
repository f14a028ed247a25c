package server

import (
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Viewer connection limits
// -----------------------------------------------------------------------------

const (
	viewerWriteWait    = 2 * time.Second
	viewerIdleTimeout  = 60 * time.Second // no frame or pong for this long drops the viewer
	viewerPingInterval = (viewerIdleTimeout * 9) / 10
	viewerCommandLimit = 4 * 1024 // viewers only send short JSON commands
)

// -----------------------------------------------------------------------------
// Client is one attached viewer. The hub owns send: it is the only writer once
// the viewer is registered and the only one that closes it.
// -----------------------------------------------------------------------------

type Client struct {
	hub  *StatusServer
	conn *websocket.Conn
	send chan interface{}
	addr string
}

// -----------------------------------------------------------------------------
// readPump reads viewer commands until the socket fails or goes idle, then
// detaches the viewer from the hub.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
		c.hub.Logger.Debug("Viewer %s detached", c.addr)
	}()

	c.conn.SetReadLimit(viewerCommandLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
	})

	for {
		_, command, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Viewer %s read failed: %v", c.addr, err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(viewerIdleTimeout))
		c.hub.HandleClientMessage(c, command)
	}
}

// -----------------------------------------------------------------------------
// writePump relays snapshots and session updates to the viewer as JSON and
// keeps it alive with pings. A closed send channel means the hub let go.
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ping := time.NewTicker(viewerPingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(viewerWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "viewer released"))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Viewer %s write failed: %v", c.addr, err)
				return
			}

		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(viewerWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
