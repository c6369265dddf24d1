package config

import (
	"flag"
	"os"
	"time"

	"github.com/danielmvs/fleetsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the fleet REST API (default from Config)
//	-g string   bind address of the local caching gateway
//	-u string   origin of the upstream web UI
//	-d string   SQLite DSN of the local store
//	-i int      online check interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-u", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the fleet REST API")
	fs.StringVar(&cfg.GatewayAddr, "g", cfg.GatewayAddr, "bind address of the local caching gateway")
	fs.StringVar(&cfg.UpstreamAddr, "u", cfg.UpstreamAddr, "origin of the upstream web UI")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite DSN of the local store")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
