package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/taleweaver/internal/api"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string // overrides server.addr
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the views and media handles over HTTP",
		Long: `Run the local HTTP surface until interrupted.

Pages open views with POST /api/views/home or /api/views/tales, render
them with GET /api/views/:id, and close them with DELETE, which revokes
every media handle the view issued. Photos are served from /media/.

Examples:
  taleweaver serve
  taleweaver serve --addr 127.0.0.1:9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	app, _, err := opts.start(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := opts.Addr
	if addr == "" {
		addr = app.Config.Server.Addr
	}

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(app.Stories, app.Reconciler, app.Registry,
		api.WithLogger(app.Logger),
		api.WithMaxBodyBytes(app.Config.Server.MaxBodyBytes),
		api.WithMaxViews(app.Config.Server.MaxViews),
	)
	defer srv.Close()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen on "+addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveHTTP(ctx, lis, srv.Routes(), app.Logger)
}

// serveHTTP serves h on lis until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, lis net.Listener, h http.Handler, logger *slog.Logger) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", lis.Addr().String())
		errCh <- hs.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
