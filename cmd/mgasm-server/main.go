package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/me/mgasm/internal/cli"
	"github.com/me/mgasm/internal/config"
	"github.com/me/mgasm/internal/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv("MGASM_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (default from config, :5000)")
	dbPath := flag.String("db", "", "Database path (default ~/.mgasm/mgasm.db)")
	scratch := flag.String("scratch", "", "Scratch directory for run outputs")
	backend := flag.String("backend", "", "Backend: kbase or local")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *scratch != "" {
		cfg.ScratchDir = *scratch
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	logger.Info("database ready", "path", app.Config.DBPath)

	if err := cli.Serve(ctx, app, cfg.Addr, logger); err != nil {
		logger.Error("server failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
