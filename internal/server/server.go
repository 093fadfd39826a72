// Package server provides HTTP server initialization and lifecycle
// management for the Nocturne memory graph API.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/KomuDhara/nocturne-memory/internal/config"
	"github.com/KomuDhara/nocturne-memory/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server, serving until ctx is
// cancelled. It returns the actual address being listened on (useful for
// testing with port 0) and the WebSocketHub so callers can broadcast their
// own events.
//
// journal may be nil; the journal routes then respond 503.
func Start(ctx context.Context, cfg *config.Config, store handlers.GraphStore, journal handlers.SnapshotJournal) (string, *handlers.WebSocketHub, error) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()

	mux := http.NewServeMux()
	h := handlers.NewHandlers(store, journal, hub)
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = handlers.RequireAuth(handler, cfg.Security.APIToken)
	if cfg.Server.RateLimit > 0 {
		rl := handlers.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		handler = handlers.RateLimitMiddleware(handler, rl)
	}
	handler = securityHeadersMiddleware(handler)
	handler = handlers.LogRequests(handler)

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		hub.Stop()
		return "", nil, err
	}
	addr := listener.Addr().String()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown: %v", err)
		}
		hub.Stop()
	}()

	go func() {
		log.Printf("server: listening on %s", addr)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: %v", err)
		}
	}()

	return addr, hub, nil
}
