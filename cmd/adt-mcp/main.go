// adt-mcp serves SAP ABAP Development Tools operations over the Model
// Context Protocol on stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abaplab/adt-mcp/internal/adt"
	"github.com/abaplab/adt-mcp/internal/config"
	"github.com/abaplab/adt-mcp/internal/provider"
	"github.com/abaplab/adt-mcp/internal/registry"
	"github.com/abaplab/adt-mcp/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          "adt-mcp",
		Short:        "MCP server for SAP ABAP development (ADT)",
		Long:         "adt-mcp exposes ABAP Development Tools operations as MCP tools over stdio:\nobject CRUD, locking, transports, checks, ATC, ABAP Unit and abapGit.",
		Version:      server.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, logLevel)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file (environment variables take precedence)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func serve(parent context.Context, configPath, logLevel string) error {
	// Stdout carries the protocol; all logging goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	session := adt.NewSession(cfg, log)
	client := adt.NewClient(session)

	reg, err := registry.New(provider.Default(client)...)
	if err != nil {
		return fmt.Errorf("assemble registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(reg, session, log)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped", "error", err)

		return err
	}

	log.Info("Shut down")

	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return level
}
