package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cadenzaplayer/cadenza/internal/app"
	"github.com/cadenzaplayer/cadenza/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (defaults to the user config dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cadenza:", err)
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg, app.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cadenza:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cadenza:", err)
		os.Exit(1)
	}
}
