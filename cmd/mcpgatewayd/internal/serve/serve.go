// Package serve implements the `mcpgatewayd serve` command: load config,
// start every configured server, bind the REST API, and shut down cleanly on
// signal.
package serve

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
	"github.com/tinyland-inc/mcpgatewayd/pkg/gateway"
	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
	"github.com/tinyland-inc/mcpgatewayd/pkg/restapi"
)

// Command builds the `serve` subcommand.
func Command() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway: supervise configured MCP servers and serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to mcp_config.json (defaults to $MCP_CONFIG_PATH or ./mcp_config.json)")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(parseLevel(cfg.Gateway.LogLevel))

	gw := gateway.New(cfg.Gateway)

	for id, sc := range cfg.MCPServers {
		if err := gw.StartServer(ctx, id, sc); err != nil {
			logger.ErrorCF("serve", "failed to start configured server", map[string]any{
				"server_id": id,
				"error":     err.Error(),
			})
			continue
		}
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           restapi.NewRouter(gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoCF("serve", "listening", map[string]any{"addr": addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.InfoC("serve", "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCF("serve", "http server shutdown error", map[string]any{"error": err.Error()})
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCF("serve", "gateway shutdown error", map[string]any{"error": err.Error()})
	}
	return nil
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}
