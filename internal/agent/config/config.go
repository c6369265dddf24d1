package config

import "time"

// Config holds runtime settings for the fleet agent.
//
// Fields:
//   - ServerEndpointAddr: base URL of the fleet REST API.
//   - GatewayAddr: local bind address for the caching gateway.
//   - UpstreamAddr: origin of the web UI the gateway fronts.
//   - DatabaseDSN: SQLite DSN of the local persistence store.
//   - OnlineCheckInterval: how often the agent probes server reachability.
//   - PrecacheManifest: asset paths fetched into the static cache on install.
type Config struct {
	ServerEndpointAddr  string
	GatewayAddr         string
	UpstreamAddr        string
	DatabaseDSN         string
	OnlineCheckInterval time.Duration
	PrecacheManifest    []string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.GatewayAddr = "127.0.0.1:3000"
	c.UpstreamAddr = "http://127.0.0.1:5173"
	c.DatabaseDSN = "file:fleetsync.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.PrecacheManifest = []string{"/", "/index.html", "/manifest.json"}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
