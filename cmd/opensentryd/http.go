package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// handleHTTPServer starts the HTTP server on addr and shuts it down
// gracefully with a 30s timeout when ctx is cancelled, adapted from the
// teacher's cmd/orbo/http.go signal-driven shutdown (goa's generated
// transport layer is replaced here by the chi router handler itself).
func handleHTTPServer(ctx context.Context, addr string, handler http.Handler, wg *sync.WaitGroup, errc chan error, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 60 * time.Second}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			logger.Info("opensentryd: http server listening", "addr", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		logger.Info("opensentryd: shutting down http server", "addr", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("opensentryd: http shutdown failed", "err", err)
		}
	}()
}
