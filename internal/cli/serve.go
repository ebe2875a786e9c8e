package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/mgasm/internal/server"
)

// SourceURL is the repository reported by the health endpoint.
const SourceURL = "https://github.com/me/mgasm"

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("addr") {
				addr = app.Config.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, app, addr, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5000", "Listen address (default from config)")
	return cmd
}

// Serve runs the REST API on addr until ctx is cancelled, then shuts the
// listener down and waits for background runs to stop.
func Serve(ctx context.Context, app *App, addr string, logger *slog.Logger) error {
	srv := server.New(app.Orchestrator, app.Store, logger,
		server.WithBaseContext(ctx),
		server.WithGitInfo(SourceURL, buildRevision()),
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "backend", app.Config.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Background runs share ctx and are already cancelling.
	srv.Wait()
	logger.Info("server stopped")
	return nil
}

// buildRevision returns the VCS revision stamped into the binary, if any.
func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
