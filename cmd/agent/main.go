package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/danielmvs/fleetsync/internal/agent"
	"github.com/danielmvs/fleetsync/internal/agent/config"
	"github.com/danielmvs/fleetsync/internal/flagx"
)

func main() {
	cfg := config.LoadConfig()

	ctx := context.Background()

	app, err := agent.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	args := flagx.FilterArgs(os.Args[1:], []string{"-user"})
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "username to log in as before starting")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}

	if *user != "" {
		if err := app.Login(ctx, *user); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
