package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atharv3903/saferoute/internal/cache"
	"github.com/atharv3903/saferoute/internal/graph"
)

type ServerConfig struct {
	Driver       string
	DSN          string
	Addr         string
	ConfigPath   string
	SeedPath     string
	RouteTimeout time.Duration
	LogLevel     string
	LogJSON      bool
	TraceStdout  bool
}

// FromFlagsServer parses the process flags. Environment variables provide the
// flag defaults.
func FromFlagsServer() ServerConfig {
	cfg, err := Parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Parse reads server settings from args, falling back to getenv for defaults.
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (ServerConfig, error) {
	var cfg ServerConfig
	fs.StringVar(&cfg.Driver, "driver", envOr(getenv, "DB_DRIVER", "mysql"), "database driver: mysql or sqlite")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "database DSN")
	fs.StringVar(&cfg.Addr, "addr", envOr(getenv, "ADDR", ":8080"), "HTTP bind address")
	fs.StringVar(&cfg.ConfigPath, "config", getenv("SAFEROUTE_CONFIG"), "routing config YAML file")
	fs.StringVar(&cfg.SeedPath, "seed", "", "facility YAML file to import at startup")
	fs.DurationVar(&cfg.RouteTimeout, "route-timeout", envDuration(getenv, "ROUTE_TIMEOUT", 2*time.Second), "per-request routing deadline")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr(getenv, "LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.BoolVar(&cfg.LogJSON, "log-json", getenv("LOG_JSON") == "true", "emit JSON logs")
	fs.BoolVar(&cfg.TraceStdout, "trace-stdout", getenv("TRACE_STDOUT") == "true", "print spans to stdout")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.Driver != "mysql" && cfg.Driver != "sqlite" {
		return cfg, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if cfg.RouteTimeout <= 0 {
		return cfg, fmt.Errorf("route-timeout must be > 0")
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	if v := getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// RoutingConfig tunes the graph builder, risk enrichment and graph cache.
type RoutingConfig struct {
	Graph graph.BuilderConfig `yaml:"graph"`
	Risk  graph.RiskConfig    `yaml:"risk"`
	Cache CacheConfig         `yaml:"cache"`
}

type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

func DefaultRouting() RoutingConfig {
	return RoutingConfig{
		Graph: graph.DefaultBuilderConfig(),
		Risk:  graph.DefaultRiskConfig(),
		Cache: CacheConfig{TTL: cache.DefaultGraphTTL, Capacity: 256},
	}
}

// LoadRouting overlays the YAML file at path onto the defaults. An empty path
// or a missing file yields the defaults.
func LoadRouting(path string) (RoutingConfig, error) {
	cfg := DefaultRouting()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read routing config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse routing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid routing config: %w", err)
	}
	return cfg, nil
}

func (c RoutingConfig) Validate() error {
	if c.Graph.GridStepDeg <= 0 {
		return fmt.Errorf("graph.grid_step_deg must be > 0")
	}
	if c.Graph.BufferDeg < 0 {
		return fmt.Errorf("graph.buffer_deg must be >= 0")
	}
	if c.Graph.NeighborFactor < 1 {
		return fmt.Errorf("graph.neighbor_factor must be >= 1")
	}
	switch c.Graph.CongestionMode {
	case graph.CongestionSeeded, graph.CongestionFixed:
	default:
		return fmt.Errorf("graph.congestion_mode %q is not one of seeded, fixed", c.Graph.CongestionMode)
	}
	if c.Graph.CongestionCeiling < 0 || c.Graph.CongestionCeiling > 1 {
		return fmt.Errorf("graph.congestion_ceiling must be within [0, 1]")
	}
	if c.Risk.RadiusKm <= 0 {
		return fmt.Errorf("risk.radius_km must be > 0")
	}
	if c.Risk.Divisor <= 0 {
		return fmt.Errorf("risk.divisor must be > 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be >= 1, got %d", c.Cache.Capacity)
	}
	return nil
}
