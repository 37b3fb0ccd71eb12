package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/config"
	"github.com/AdamBeresnev/cue-bracket/internal/db"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/service"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.MigrationsPath); err != nil {
		return err
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub(logger.With("component", "hub"))
	deps := service.Deps{
		Tournaments: store.NewTournamentStore(database),
		Matches:     store.NewMatchStore(database),
		Users:       store.NewUserStore(database),
		Dispatcher:  notify.Multi{notify.NewLogDispatcher(logger), hub},
		Metrics:     metrics.New(prometheus.DefaultRegisterer),
		Clock:       bracket.SystemClock{},
		Logger:      logger,
	}
	brackets := service.NewDefaultBracketService(deps)
	matches := service.NewMatchService(database, deps, brackets)

	srv := &server{
		sessions:  sessionManager,
		userStore: deps.Users,
		tournaments: service.NewTournamentService(database, deps, brackets, service.TournamentDefaults{
			RaceTo:            cfg.DefaultRaceTo,
			ConfirmationHours: cfg.DefaultConfirmationHours,
			MatchExpiryHours:  cfg.DefaultMatchExpiryHours,
		}),
		matches: matches,
		users:   service.NewUserService(database, deps),
		hub:     hub,

		allowGuestAdmin: cfg.AllowGuestAdmin,
	}
	sweeper := service.NewSweeper(matches, deps, cfg.SweepInterval, cfg.ReminderLead)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "guest_admin", cfg.AllowGuestAdmin)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
