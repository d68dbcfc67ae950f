package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures Run.
type Options struct {
	// Listener serves the publish handler.
	Listener net.Listener

	// MetricsListener serves /metrics when non-nil.
	MetricsListener net.Listener

	ShutdownTimeout time.Duration
}

// Run serves handler until ctx is canceled, then drains in-flight requests
// for up to ShutdownTimeout. It returns nil after a clean shutdown.
func Run(ctx context.Context, handler http.Handler, opts Options, logger zerolog.Logger) error {
	if opts.Listener == nil {
		return errors.New("server: no listener")
	}

	servers := []*http.Server{newHTTPServer(ctx, handler)}
	listeners := []net.Listener{opts.Listener}

	if opts.MetricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, newHTTPServer(ctx, mux))
		listeners = append(listeners, opts.MetricsListener)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		srv, ln := servers[i], listeners[i]
		g.Go(func() error {
			logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts outlive ctx so Shutdown can drain them.
		BaseContext: func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
}
