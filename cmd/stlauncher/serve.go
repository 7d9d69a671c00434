package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stlauncher/internal/common/retry"
	"stlauncher/internal/config"
	"stlauncher/internal/httpapi"
	"stlauncher/internal/logging"
	"stlauncher/internal/ports"
)

const (
	listenRetries     = 3
	listenRetryDelay  = 1500 * time.Millisecond
	initialReclaimGap = 500 * time.Millisecond
	shutdownTimeout   = 10 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the control panel and API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	log := logging.WithComponent("serve")
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.prepare(); err != nil {
		return err
	}

	port := listenPort(cfg.Addr)
	reclaim := func(ctx context.Context) {
		if port > 0 {
			a.reclaimer.Reclaim(ctx, port)
		}
	}
	if port > 0 && ports.IsBusy(port) {
		log.Warn().Int("port", port).Msg("listen port busy, reclaiming")
		reclaim(ctx)
		retry.Sleep(ctx, initialReclaimGap)
	}
	ln, err := listenWithRetry(ctx, cfg.Addr, listenRetries, listenRetryDelay, reclaim)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Int("app_port", cfg.AppPort).Msg("stlauncher listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.svc.Shutdown(sctx)
	cancelBase()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// listenWithRetry binds addr. While the address is in use it calls reclaim
// and waits delay, up to retries times.
func listenWithRetry(ctx context.Context, addr string, retries int, delay time.Duration, reclaim func(context.Context)) (net.Listener, error) {
	log := logging.WithComponent("serve")
	for attempt := 0; ; attempt++ {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || attempt >= retries {
			return nil, err
		}
		log.Warn().Int("attempt", attempt+1).Int("max", retries).Str("addr", addr).Msg("address in use, reclaiming")
		reclaim(ctx)
		if !retry.Sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
}
