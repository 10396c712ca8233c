package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ── Configuration ───────────────────────────────────────────
// Settings come from three layers: a best-effort .env file, the
// environment, and command-line flags, each overriding the previous.

type Config struct {
	// Transport selects how the MCP server is exposed.
	Transport string // "stdio" or "sse"
	SSEAddr   string
	SSEBase   string

	// OpsAddr enables the auxiliary health/metrics listener when set.
	OpsAddr string

	LogLevel  string // zerolog level name
	LogFormat string // "console" or "json"

	// SourcesFile preloads descriptors at startup when set.
	SourcesFile string

	// Monitor settings for the file-backed source watcher.
	MonitorEnabled bool
	RevalidateCron string
}

// FromEnv builds a Config from .env and the process environment.
func FromEnv() *Config {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	return &Config{
		Transport:      getEnv("DATAGATE_TRANSPORT", "stdio"),
		SSEAddr:        getEnv("DATAGATE_SSE_ADDR", ":8080"),
		SSEBase:        getEnv("DATAGATE_SSE_BASE_URL", "http://localhost:8080"),
		OpsAddr:        getEnv("DATAGATE_OPS_ADDR", ""),
		LogLevel:       getEnv("DATAGATE_LOG_LEVEL", "info"),
		LogFormat:      getEnv("DATAGATE_LOG_FORMAT", "console"),
		SourcesFile:    getEnv("DATAGATE_SOURCES_FILE", ""),
		MonitorEnabled: getEnv("DATAGATE_MONITOR", "true") == "true",
		RevalidateCron: getEnv("DATAGATE_REVALIDATE_CRON", "@every 5m"),
	}
}

// BindFlags registers command-line overrides on fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Transport, "t", c.Transport, "transport: stdio or sse")
	fs.StringVar(&c.SSEAddr, "sse-addr", c.SSEAddr, "listen address for the sse transport")
	fs.StringVar(&c.SSEBase, "sse-base", c.SSEBase, "base url advertised by the sse transport")
	fs.StringVar(&c.OpsAddr, "ops-addr", c.OpsAddr, "health/metrics listen address (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.StringVar(&c.SourcesFile, "sources", c.SourcesFile, "yaml file of data sources to preload")
	fs.BoolVar(&c.MonitorEnabled, "monitor", c.MonitorEnabled, "watch file-backed sources for changes")
}

// Validate rejects settings no component can act on.
func (c *Config) Validate() error {
	switch c.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unknown transport %q (want stdio or sse)", c.Transport)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.LogFormat)
	}
	return nil
}

// Load is the entrypoint path: env, then flags, then validation.
func Load() (*Config, error) {
	c := FromEnv()
	c.BindFlags(flag.CommandLine)
	flag.Parse()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
