// Package config provides hierarchical configuration loading for codebridge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the codebridge service.
type Config struct {
	Server  Server  `yaml:"server"`
	Engine  Engine  `yaml:"engine"`
	Session Session `yaml:"session"`
	Logging Logging `yaml:"logging"`
	Breaker Breaker `yaml:"breaker"`
	Cache   Cache   `yaml:"cache"`
	NATS    NATS    `yaml:"nats"`
	MCP     MCP     `yaml:"mcp"`
	Otel    Otel    `yaml:"otel"`
}

// Server holds HTTP/websocket listener configuration.
type Server struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Addr returns host:port for net.Listen.
func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}

// Engine selects and configures the Analysis Engine backend.
type Engine struct {
	Backend         string        `yaml:"backend"`          // "go" | "lsp"
	Command         []string      `yaml:"command"`          // lsp: server command line
	LanguageID      string        `yaml:"language_id"`      // lsp: textDocument languageId
	Workspace       string        `yaml:"workspace"`        // lsp: root directory
	DocumentName    string        `yaml:"document_name"`    // lsp: virtual file name inside workspace
	GoImporter      string        `yaml:"go_importer"`      // go: "gc" | "source"
	StartTimeout    time.Duration `yaml:"start_timeout"`    // lsp: initialize handshake deadline
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // lsp: shutdown/exit deadline
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // per engine call; 0 = none
	DiagnosticsWait time.Duration `yaml:"diagnostics_wait"` // lsp: max wait for publishDiagnostics
	MaxOneShot      int           `yaml:"max_one_shot"`     // concurrent one-shot engines (mcp, check)
}

// Session holds per-connection behavior.
type Session struct {
	DiagnosticsDebounce time.Duration `yaml:"diagnostics_debounce"` // 0 = publish on every update
	MaxMessageBytes     int64         `yaml:"max_message_bytes"`
	InboxSize           int           `yaml:"inbox_size"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for engine calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the diagnostics result cache configuration.
type Cache struct {
	Enabled     bool          `yaml:"enabled"`
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	TTL         time.Duration `yaml:"ttl"`
	Shared      bool          `yaml:"shared"` // also cache in a NATS KV bucket
}

// NATS holds the optional diagnostics mirror configuration. Empty URL disables it.
type NATS struct {
	URL string `yaml:"url"`
}

// MCP holds the MCP tool surface configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// Otel holds OpenTelemetry exporter configuration.
type Otel struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Host:       "127.0.0.1",
			Port:       "5000",
			CORSOrigin: "*",
		},
		Engine: Engine{
			Backend:         "go",
			LanguageID:      "go",
			Workspace:       ".",
			DocumentName:    "main.go",
			GoImporter:      "gc",
			StartTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			DiagnosticsWait: 2 * time.Second,
			MaxOneShot:      4,
		},
		Session: Session{
			MaxMessageBytes: 4 << 20,
			InboxSize:       64,
			WriteTimeout:    10 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "codebridge",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			Enabled:     true,
			L1MaxSizeMB: 32,
			TTL:         10 * time.Minute,
		},
		MCP: MCP{
			Name: "codebridge",
		},
		Otel: Otel{
			Endpoint:    "localhost:4317",
			ServiceName: "codebridge",
			Insecure:    true,
		},
	}
}
