package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Strob0t/codebridge/internal/adapter/ristretto"
	"github.com/Strob0t/codebridge/internal/port/messagequeue"
)

// SessionStats reports on the running editor sessions.
type SessionStats interface {
	Backend() string
	Active() int64
}

// ConnectionStats reports on open websocket connections.
type ConnectionStats interface {
	ConnectionCount() int
}

// Handlers holds the dependencies of the plain HTTP endpoints. Cache and
// Queue are nil when their feature is disabled.
type Handlers struct {
	Sessions    SessionStats
	Connections ConnectionStats
	Cache       *ristretto.Cache
	Queue       messagequeue.Publisher
}

type healthStatus struct {
	Status      string       `json:"status"`
	Backend     string       `json:"backend"`
	Sessions    int64        `json:"sessions"`
	Connections int          `json:"connections"`
	Cache       *cacheStatus `json:"cache,omitempty"`
	NATS        string       `json:"nats,omitempty"`
}

type cacheStatus struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Health reports the engine backend and the session count.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := healthStatus{
		Status:      "ok",
		Backend:     h.Sessions.Backend(),
		Sessions:    h.Sessions.Active(),
		Connections: h.Connections.ConnectionCount(),
	}
	if h.Cache != nil {
		s := h.Cache.Stats()
		status.Cache = &cacheStatus{Hits: s.Hits, Misses: s.Misses, HitRatio: s.HitRatio}
	}
	if h.Queue != nil {
		status.NATS = "disconnected"
		if h.Queue.IsConnected() {
			status.NATS = "connected"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}
