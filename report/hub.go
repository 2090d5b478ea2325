// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"net/http"
	"sync"
	"time"

	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ClientBuffer is the number of messages queued per WebSocket client before
// new messages are dropped for that client.
const ClientBuffer = 16

const writeWait = 5 * time.Second

// Hub streams readings and errors to WebSocket clients as JSON Messages.
//
// Hub is an http.Handler; mount it on the endpoint clients connect to.
type Hub struct {
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	// last is replayed to new clients.
	last []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty Hub. A nil logger selects the logrus standard
// logger.
func NewHub(l logrus.FieldLogger) *Hub {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     l,
		now:     time.Now,
		clients: map[*client]struct{}{},
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams messages until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, ClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Debug("websocket client connected")

	go h.write(c)
	// Clients never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read failed")
			}
			break
		}
	}
	h.remove(c)
}

func (h *Hub) write(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

func (h *Hub) broadcast(b []byte, keep bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if keep {
		h.last = b
	}
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// Slow client.
		}
	}
}

// ReportReading implements monitor.Reporter.
func (h *Hub) ReportReading(r monitor.Reading) {
	h.broadcast(NewReadingMessage(r).marshal(), r.Mode == monitor.ModeIAQ)
}

// ReportError implements monitor.Reporter.
func (h *Hub) ReportError(e monitor.ErrorEvent) {
	h.broadcast(NewErrorMessage(e, h.now()).marshal(), false)
}

var _ monitor.Reporter = &Hub{}
var _ http.Handler = &Hub{}
