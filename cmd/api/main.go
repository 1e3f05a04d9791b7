package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"complai-backend/internal/bootstrap"
	"complai-backend/internal/shared/config"
	"complai-backend/internal/shared/server"
)

const (
	timerSweepInterval = 15 * time.Minute
	shutdownTimeout    = 10 * time.Second
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepTimers(ctx, app)

	addr := server.Addr(cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if app.DB != nil {
		app.DB.Close()
	}
}

// sweepTimers periodically reclaims review timers abandoned past the
// configured max age.
func sweepTimers(ctx context.Context, app *bootstrap.App) {
	ticker := time.NewTicker(timerSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := app.ReviewsService.SweepTimers(app.Config.TimerMaxAge); dropped > 0 {
				log.Printf("timer sweep dropped %d stale timers", dropped)
			}
		}
	}
}
