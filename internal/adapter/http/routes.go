package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/codebridge/internal/middleware"
)

// Routes bundles what the router serves. MCP is nil when disabled.
type Routes struct {
	Handlers  *Handlers
	Websocket http.HandlerFunc
	MCP       http.Handler
	Wrap      func(http.Handler) http.Handler // optional outer middleware (tracing)
}

// NewRouter assembles the chi router. Long-lived endpoints (the websocket
// and MCP streams) are mounted outside the request timeout.
func NewRouter(corsOrigin string, rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS(corsOrigin))
	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", rt.Websocket)
	r.Get("/", rt.Websocket)
	if rt.MCP != nil {
		r.Handle("/mcp", rt.MCP)
	}

	r.Group(func(r chi.Router) {
		r.Use(SecurityHeaders)
		r.Use(chimw.Timeout(30 * time.Second))
		r.Get("/health", rt.Handlers.Health)
	})

	if rt.Wrap != nil {
		return rt.Wrap(r)
	}
	return r
}
