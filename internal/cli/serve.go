package cli

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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/restspec/internal/echoserver"
)

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local mock API",
		Long: `Serve the echo, workspace, collection and users mock API. The listen address,
API key, CORS handling and download directory come from the [server] table of the
configuration.

Examples:
  restspec serve
  restspec serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: serve,
	}
	cmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address overriding the configuration")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr()
	}
	s, err := echoserver.New(cfg.ServerOptions())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runServer(ctx, srv, ln)
}

// runServer serves on ln until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	slog := log.With().Str("addr", ln.Addr().String()).Logger()
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info().Msg("mock server started")
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info().Msg("shutdown signal received")
	}

	// Give outstanding requests 5 seconds to complete and initiate the shutdown.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error().Err(err).Msg("could not stop server gracefully")
		if err := srv.Close(); err != nil {
			return fmt.Errorf("could not stop server: %w", err)
		}
	}
	slog.Info().Msg("server stopped")
	return nil
}
