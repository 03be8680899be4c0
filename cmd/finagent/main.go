package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"finagent/internal/adapter/cli"
	"finagent/internal/config"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadClient()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	app := cli.FromConfig(cfg)
	code := cli.Execute(ctx, app, os.Args[1:])
	app.Close()
	stop()
	os.Exit(code)
}
