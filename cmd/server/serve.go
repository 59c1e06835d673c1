package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gorelay/internal/logging"
	"github.com/Tyrowin/gorelay/internal/server"
)

type serveOptions struct {
	envFile      string
	addr         string
	staticDir    string
	messagesFile string
	logLevel     string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the relay server.

Configuration comes from the environment (see RELAY_ADDR, STATIC_DIR,
MESSAGES_FILE, ...), optionally seeded from an env file. Flags override both.
The message log is written to the messages file on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "env file loaded before reading the environment")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (RELAY_ADDR)")
	cmd.Flags().StringVar(&opts.staticDir, "static-dir", "", "static content root (STATIC_DIR)")
	cmd.Flags().StringVar(&opts.messagesFile, "messages-file", "", "message log persistence file (MESSAGES_FILE)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	cfg, err := server.NewConfigFromEnv(opts.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if flags.Changed("static-dir") {
		cfg.StaticDir = opts.staticDir
	}
	if flags.Changed("messages-file") {
		cfg.MessagesFile = opts.messagesFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	app, err := server.NewApp(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting relay server", "version", version)
	return app.Run(ctx)
}
