package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-bill-webapp/internal/logger"
)

// RunWithGracefulShutdown serves until ctx is cancelled or SIGINT/SIGTERM
// arrives, then drains in-flight requests for at most timeout.
func RunWithGracefulShutdown(ctx context.Context, srv *http.Server, log *logger.StructuredLogger, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.LogSystemEvent("Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.LogSystemEvent("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", err)
		return err
	}

	if err := <-serverErr; err != nil {
		return err
	}
	log.LogSystemEvent("Server shutdown complete")
	return nil
}
