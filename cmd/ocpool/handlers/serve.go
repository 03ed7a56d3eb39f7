package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/imamik/ocpool/internal/api"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// onListening is called with the bound address once the server accepts
// connections. Replaced in tests.
var onListening = func(string) {}

// Serve handles the serve command.
//
// It loads the pool, serves the read-only pool API and reloads the pool on
// the configured schedule until ctx is cancelled.
func Serve(ctx context.Context, g Global, listen string) (err error) {
	rt, err := newRuntime(g, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()

	if listen == "" {
		listen = rt.cfg.Server.Listen
	}

	manager, err := rt.pool(ctx)
	if err != nil {
		return err
	}
	if err := manager.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load cluster pool: %w", err)
	}

	reloader, err := api.NewReloader(ctx, rt.cfg.Server.ReloadSchedule, manager, rt.log)
	if err != nil {
		return UsageError(err)
	}
	reloader.Start()
	defer reloader.Stop()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}
	srv := &http.Server{
		Handler:           api.New(manager, api.WithGatherer(rt.registry), api.WithLogger(rt.log)).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	rt.log.Info("serving pool", "address", ln.Addr().String(), "clusters", len(manager.Names()))
	onListening(ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
