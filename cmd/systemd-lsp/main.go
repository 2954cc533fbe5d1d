package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alexispurslane/systemd-lsp/config"
	"github.com/alexispurslane/systemd-lsp/server"
	"github.com/spf13/cobra"
)

var (
	stdio      bool
	tcp        string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "systemd-lsp",
	Short:         "Language server for systemd unit files",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("systemd-lsp version %s\n", server.Version)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&stdio, "stdio", true, "Run in STDIO mode (default)")
	rootCmd.Flags().StringVar(&tcp, "tcp", "", "Run in TCP mode with address (e.g., 127.0.0.1:9999)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/systemd-lsp/config.toml)")
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			slog.Warn("No default config location, using defaults", "error", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// The default handler writes through the log package to stderr, which
	// keeps stdout free for the protocol.
	slog.SetLogLoggerLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tcp != "" {
		slog.Info("systemd-lsp server starting", "mode", "tcp", "address", tcp)
		return server.RunTCP(ctx, cfg, tcp)
	}

	slog.Info("systemd-lsp server starting", "mode", "stdio", "config", path)
	if err := server.RunStdio(ctx, cfg); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC", "error", r, "stack", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
