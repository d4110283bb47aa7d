package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "codebridge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Host, "CODEBRIDGE_HOST")
	setString(&cfg.Server.Port, "CODEBRIDGE_PORT")
	setString(&cfg.Server.CORSOrigin, "CODEBRIDGE_CORS_ORIGIN")

	// Engine
	setString(&cfg.Engine.Backend, "CODEBRIDGE_ENGINE")
	setFields(&cfg.Engine.Command, "CODEBRIDGE_ENGINE_COMMAND")
	setString(&cfg.Engine.LanguageID, "CODEBRIDGE_ENGINE_LANGUAGE_ID")
	setString(&cfg.Engine.Workspace, "CODEBRIDGE_ENGINE_WORKSPACE")
	setString(&cfg.Engine.DocumentName, "CODEBRIDGE_ENGINE_DOCUMENT")
	setString(&cfg.Engine.GoImporter, "CODEBRIDGE_GO_IMPORTER")
	setDuration(&cfg.Engine.StartTimeout, "CODEBRIDGE_ENGINE_START_TIMEOUT")
	setDuration(&cfg.Engine.ShutdownTimeout, "CODEBRIDGE_ENGINE_SHUTDOWN_TIMEOUT")
	setDuration(&cfg.Engine.RequestTimeout, "CODEBRIDGE_ENGINE_REQUEST_TIMEOUT")
	setDuration(&cfg.Engine.DiagnosticsWait, "CODEBRIDGE_ENGINE_DIAGNOSTICS_WAIT")
	setInt(&cfg.Engine.MaxOneShot, "CODEBRIDGE_ENGINE_MAX_ONE_SHOT")

	// Session
	setDuration(&cfg.Session.DiagnosticsDebounce, "CODEBRIDGE_DIAGNOSTICS_DEBOUNCE")
	setInt64(&cfg.Session.MaxMessageBytes, "CODEBRIDGE_MAX_MESSAGE_BYTES")
	setInt(&cfg.Session.InboxSize, "CODEBRIDGE_INBOX_SIZE")
	setDuration(&cfg.Session.WriteTimeout, "CODEBRIDGE_WRITE_TIMEOUT")

	setString(&cfg.Logging.Level, "CODEBRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CODEBRIDGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CODEBRIDGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "CODEBRIDGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CODEBRIDGE_BREAKER_TIMEOUT")

	// Cache
	setBool(&cfg.Cache.Enabled, "CODEBRIDGE_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "CODEBRIDGE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "CODEBRIDGE_CACHE_TTL")
	setBool(&cfg.Cache.Shared, "CODEBRIDGE_CACHE_SHARED")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.MCP.Enabled, "CODEBRIDGE_MCP_ENABLED")
	setString(&cfg.MCP.Name, "CODEBRIDGE_MCP_NAME")

	// Otel
	setBool(&cfg.Otel.Enabled, "CODEBRIDGE_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Otel.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.Otel.Insecure, "CODEBRIDGE_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Engine.Backend {
	case "":
		return errors.New("engine.backend is required")
	case "lsp":
		if len(cfg.Engine.Command) == 0 && cfg.Engine.LanguageID == "" {
			return errors.New("engine.command or engine.language_id is required for the lsp backend")
		}
	}
	if cfg.Engine.MaxOneShot < 1 {
		return errors.New("engine.max_one_shot must be >= 1")
	}
	if cfg.Session.DiagnosticsDebounce < 0 {
		return errors.New("session.diagnostics_debounce must be >= 0")
	}
	if cfg.Session.MaxMessageBytes < 1 {
		return errors.New("session.max_message_bytes must be >= 1")
	}
	if cfg.Session.InboxSize < 1 {
		return errors.New("session.inbox_size must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.Enabled && cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1 when cache is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setFields splits a whitespace-separated command line.
func setFields(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.Fields(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
