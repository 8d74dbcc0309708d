package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/config"
	httpapi "github.com/atlasgrowth23/atlashvac/internal/http"
	"github.com/atlasgrowth23/atlashvac/internal/logger"
	"github.com/atlasgrowth23/atlashvac/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "atlashvac"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Multi-tenant HVAC marketing site server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCommand(), newResolveCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tenant sites, resolving custom domains and subdomains to tenant pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(cfg *config.Config) error {
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := buildStack(ctx, cfg, log)
	defer st.Close()

	router := httpapi.NewRouter(st.resolver, st.pages, log)
	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		log.Error("HTTP server stopped", zap.Error(serveErr))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	hits, misses := st.lookup.Stats()
	log.Info("Tenant cache stats", zap.Int64("hits", hits), zap.Int64("misses", misses))
	return serveErr
}

func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <host>",
		Short: "Print the routing decision for a root request on host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), config.Load(), args[0], cmd.OutOrStdout())
		},
	}
}

func runResolve(ctx context.Context, cfg *config.Config, host string, out io.Writer) error {
	log, err := logger.NewLogger(cfg.Log.Level, "console", serviceName)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	st := buildStack(ctx, cfg, log)
	defer st.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(st.resolver.Decide(ctx, host, "/"))
}
