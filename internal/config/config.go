// Package config loads settings for the example server from an optional YAML
// file and AISEN_-prefixed environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names. A double underscore
// separates nesting levels: AISEN_SERVER__ADDR sets server.addr.
const EnvPrefix = "AISEN_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Reporting ReportingConfig `koanf:"reporting"`
	Sinks     SinksConfig     `koanf:"sinks"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr        string `koanf:"addr"`
	ServiceName string `koanf:"service_name"`
}

// ReportingConfig controls the collector and the HTTP middleware.
type ReportingConfig struct {
	Enabled             bool `koanf:"enabled"`
	SendDefaultPII      bool `koanf:"send_default_pii"`
	EmitHeader          bool `koanf:"emit_header"`
	CaptureServerErrors bool `koanf:"capture_server_errors"`
	RecoverPanics       bool `koanf:"recover_panics"`
	Scrubbing           bool `koanf:"scrubbing"`
}

type SinksConfig struct {
	Stderr StderrConfig `koanf:"stderr"`
	SQLite SQLiteConfig `koanf:"sqlite"`
	CXDB   CXDBConfig   `koanf:"cxdb"`
	Async  AsyncConfig  `koanf:"async"`
}

type StderrConfig struct {
	Enabled bool `koanf:"enabled"`
	Verbose bool `koanf:"verbose"`
}

// SQLiteConfig enables the sqlite sink when Path is set.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// CXDBConfig enables the cxdb sink when Addr is set. GroupContexts > 0 keeps
// that many per-fingerprint contexts open for unlinked events.
type CXDBConfig struct {
	Addr          string `koanf:"addr"`
	ClientTag     string `koanf:"client_tag"`
	GroupContexts int    `koanf:"group_contexts"`
}

type AsyncConfig struct {
	QueueSize int `koanf:"queue_size"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

var defaults = map[string]any{
	"server.addr":                     ":8080",
	"server.service_name":             "aisen-example",
	"reporting.enabled":               true,
	"reporting.send_default_pii":      false,
	"reporting.emit_header":           true,
	"reporting.capture_server_errors": true,
	"reporting.recover_panics":        true,
	"reporting.scrubbing":             true,
	"sinks.stderr.enabled":            true,
	"sinks.stderr.verbose":            false,
	"sinks.cxdb.client_tag":           "aisen",
	"sinks.cxdb.group_contexts":       256,
	"sinks.async.queue_size":          1000,
	"log.level":                       "info",
}

// Load reads path (if non-empty and present) and then the environment, which
// overrides the file. Keys missing from both get defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
