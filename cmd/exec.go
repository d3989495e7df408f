package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchday-tickets/config"
	"matchday-tickets/internal/handlers"
	"matchday-tickets/internal/services"
	"matchday-tickets/internal/store"
	"matchday-tickets/utils"

	"golang.org/x/sync/errgroup"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize the ticket store. A nil store means ticket features are
	// unavailable on this platform; the API still serves.
	ticketStore, err := store.Shared(ctx, store.Config{
		Path:     cfg.TicketsDBPath,
		Disabled: cfg.TicketsStoreDisabled,
		Location: loc,
		Logger:   logger.With("component", "store"),
	})
	if err != nil {
		return fmt.Errorf("opening ticket store: %w", err)
	}
	defer ticketStore.Close()

	if err := os.MkdirAll(cfg.CalendarDir, 0o755); err != nil {
		logger.Warn("calendar directory unavailable", "dir", cfg.CalendarDir, "error", err)
	}

	// Initialize services
	clock := utils.RealClock()
	breaker := services.NewCalendarBreaker(utils.WithClock(clock))
	ticketService := services.NewTicketService(services.TicketServiceConfig{
		Store:    ticketStore,
		Engine:   services.NewStatusEngine(clock, loc),
		Calendar: services.NewICSCalendar(cfg.CalendarDir),
		Identity: services.NewPersistentGuestIdentity(ticketStore),
		Breaker:  breaker,
		Logger:   logger.With("component", "tickets"),
	})

	// Initialize handlers
	router := handlers.NewRouter(handlers.Routes{
		Tickets:       handlers.NewTicketHandler(ticketService, logger),
		Admin:         handlers.NewAdminHandler(ticketService, breaker, logger),
		Store:         ticketStore,
		EnableMetrics: cfg.EnableMetrics,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"store_available", ticketStore.Available(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down HTTP server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
