package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/flashcoach/backend/internal/adapter/sqlite"
	"github.com/flashcoach/backend/internal/capture"
	"github.com/flashcoach/backend/internal/config"
	"github.com/flashcoach/backend/internal/service/study"
	"github.com/flashcoach/backend/internal/service/submit"
	"github.com/flashcoach/backend/internal/service/testmode"
	"github.com/flashcoach/backend/internal/transport/middleware"
	"github.com/flashcoach/backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, opens the
// snapshot store, wires the services behind the REST API, and serves
// until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	studySvc := study.NewService(logger, store, cfg.SRS.AdvanceOn)
	if err := studySvc.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate study state: %w", err)
	}

	device := capture.NewCommandDevice(cfg.Test.CaptureCommand, logger)
	controller := testmode.NewController(logger, device, clock.New(), cfg.Test.Settle)
	defer controller.Close()

	evalClient := submit.NewClient(logger, cfg.Eval.URL, cfg.Eval.Rubric, cfg.Eval.Timeout)

	limiter := middleware.NewRateLimiter(5 * time.Minute)
	defer limiter.Stop()

	handlers := rest.Handlers{
		Health: rest.NewHealthHandler(store, BuildVersion()),
		Deck:   rest.NewDeckHandler(studySvc, cfg.Deck.DefaultDurationSec, logger),
		Study:  rest.NewStudyHandler(studySvc, logger),
		Test:   rest.NewTestHandler(controller, studySvc, evalClient, logger),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      rest.NewRouter(handlers, logger, *cfg, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
