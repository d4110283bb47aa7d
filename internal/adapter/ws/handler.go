// Package ws implements the websocket Transport Listener: it upgrades
// editor connections and runs one session per connection.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/codebridge/internal/service"
)

// SessionRunner serves one editor session over a transport.
type SessionRunner interface {
	Serve(ctx context.Context, t service.Transport, remote string) error
}

// conn wraps a single websocket connection.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub accepts websocket connections and tracks them until they close.
type Hub struct {
	sessions     SessionRunner
	readLimit    int64
	allowOrigins []string

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a hub. corsOrigin "*" or "" accepts any origin.
func NewHub(sessions SessionRunner, readLimit int64, corsOrigin string) *Hub {
	h := &Hub{
		sessions:  sessions,
		readLimit: readLimit,
		conns:     make(map[*conn]struct{}),
	}
	if corsOrigin != "" && corsOrigin != "*" {
		h.allowOrigins = []string{corsOrigin}
	}
	return h
}

// HandleWS upgrades the request and serves a session until the
// connection closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: len(h.allowOrigins) == 0,
		OriginPatterns:     h.allowOrigins,
	})
	if err != nil {
		slog.Error("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if h.readLimit > 0 {
		ws.SetReadLimit(h.readLimit)
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel}
	h.add(c)
	defer h.remove(c)

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	if err := h.sessions.Serve(ctx, &transport{ws: ws}, r.RemoteAddr); err != nil {
		slog.Warn("session failed", "remote", r.RemoteAddr, "error", err)
		_ = ws.Close(websocket.StatusInternalError, "session error")
		return
	}
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection with StatusGoingAway and waits up to
// ctx's deadline for their sessions to finish.
func (h *Hub) CloseAll(ctx context.Context) {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
			c.cancel()
		}()
	}
	wg.Wait()

	for h.ConnectionCount() > 0 {
		select {
		case <-ctx.Done():
			slog.Warn("sessions still open at shutdown", "count", h.ConnectionCount())
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected")
	}
}
