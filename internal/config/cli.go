package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// CLIFlags holds command-line overrides. Nil fields were not set on the
// command line and leave the config untouched.
type CLIFlags struct {
	ConfigPath *string
	Host       *string
	Port       *string
	LogLevel   *string
	Engine     *string
	Debounce   *string
}

// ParseFlags parses serve-mode flags. Both -flag and --flag forms are accepted.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("codebridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configPath, host, port, logLevel, engine, debounce string
	)
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&configPath, "c", "", "path to YAML config file (shorthand)")
	fs.StringVar(&host, "host", "", "listen host")
	fs.StringVar(&port, "port", "", "listen port")
	fs.StringVar(&port, "p", "", "listen port (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	fs.StringVar(&engine, "engine", "", "analysis engine backend (go|lsp)")
	fs.StringVar(&debounce, "debounce", "", "diagnostics debounce window, e.g. 150ms")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = &configPath
		case "host":
			flags.Host = &host
		case "port", "p":
			flags.Port = &port
		case "log-level":
			flags.LogLevel = &logLevel
		case "engine":
			flags.Engine = &engine
		case "debounce":
			flags.Debounce = &debounce
		}
	})
	return flags, nil
}

// LoadWithCLI loads config with the hierarchy defaults < YAML < ENV < CLI.
// It returns the resolved YAML path alongside the config.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	if err := applyCLI(&cfg, flags); err != nil {
		return nil, path, fmt.Errorf("config cli: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, flags CLIFlags) error {
	if flags.Host != nil {
		cfg.Server.Host = *flags.Host
	}
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.Engine != nil {
		cfg.Engine.Backend = *flags.Engine
	}
	if flags.Debounce != nil {
		d, err := time.ParseDuration(*flags.Debounce)
		if err != nil {
			return fmt.Errorf("debounce: %w", err)
		}
		cfg.Session.DiagnosticsDebounce = d
	}
	return nil
}
