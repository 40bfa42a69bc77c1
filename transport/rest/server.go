package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Start - starts the HTTP server serving the read-side state endpoints.
func Start(ctx context.Context, port string, handlers *Handlers) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.Ping)
	mux.HandleFunc("GET /rooms/{roomId}/state", handlers.RoomState)
	mux.HandleFunc("DELETE /rooms/{roomId}", handlers.CloseRoom)
	mux.HandleFunc("GET /decks/{deckId}", handlers.Deck)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
