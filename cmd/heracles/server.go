package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/heracles/internal/api"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the MCP stdio server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", true, "serve MCP over stdin/stdout")
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "heracles version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{progress: os.Stderr})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}()

	if cfg.Server.APIToken == "" {
		logger.Warn("no API token configured, HTTP API is unauthenticated")
	}

	handler := api.NewHandler(api.Deps{
		Runner: a.runner,
		Tools:  a.tools,
		Agents: a.agents.Catalog(),
		Token:  cfg.Server.APIToken,
		Logger: logger.With("component", "api"),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "heracles listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		mcpSrv, err := api.NewMCPServer(api.MCPDeps{
			Runner: a.runner,
			Tools:  a.tools,
			Agents: a.agents.Catalog(),
			Logger: logger.With("component", "mcp"),
		})
		if err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("building MCP server: %w", err)
		}
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
		logger.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}
