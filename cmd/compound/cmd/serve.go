package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/compound/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hook server",
	Long: `Start the compound hook server.

The host posts lifecycle events, tool calls and message transforms to
/api/v1/hooks. Observations, the autolearn status and a live event stream
are exposed read-only under /api/v1.

Examples:
  # Start with the configured address (127.0.0.1:4319 by default)
  compound serve

  # Start on a custom port
  compound serve --port 5000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Host address to bind to (default: server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (default: server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	host, port := a.cfg.Server.Host, a.cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	server := web.NewServer(a.service, a.store,
		web.WithLogger(a.logger),
		web.WithEventBus(a.bus),
		web.WithStatusPath(inRoot(a.root, a.cfg.Auto.StatusPath)),
		web.WithCORSOrigins(a.cfg.Server.CORSOrigins),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.service.Start(gctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("server started", "addr", addr, "root", a.root)
		if err := server.ListenAndServe(gctx, addr); err != nil {
			return fmt.Errorf("serving %s: %w", addr, err)
		}
		return nil
	})

	err = g.Wait()
	// Let a running autolearn attempt finish writing its status.
	a.service.Wait()
	a.logger.Info("server stopped")
	return err
}

// runWithContext is used by commands that need cancellation on interrupt.
func runWithContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
