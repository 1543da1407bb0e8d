package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/provider"
	providerfactory "chat-gateway/internal/provider/factory"
	"chat-gateway/internal/router"
	"chat-gateway/internal/server"
)

const serveUsage = `Usage:
  chat-gateway serve [--config <path>] [--port <port>] [--log-level <level>]

Flags:
  --config    string   Path to YAML configuration file (optional, defaults apply)
  --port      int      Override server port from configuration
  --log-level string   Override log level (debug, info, warn, error)

Environment:
  OPENAI_API_KEY       Provider credential (name configurable via provider.api_key_env)`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	var logLevel string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")
	fs.StringVar(&logLevel, "log-level", "", "override log level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProvider(ctx, cfg, registry); err != nil {
		return err
	}

	rt, err := router.New(registry, cfg.Provider.Model,
		router.WithSystemPrompt(cfg.Chat.SystemPrompt),
		router.WithMaxTokens(cfg.Provider.MaxTokens),
	)
	if err != nil {
		return err
	}

	gw, err := gateway.New(rt)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, gw)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
