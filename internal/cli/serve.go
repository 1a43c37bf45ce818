package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"wellnessconnect/internal/api"
	"wellnessconnect/internal/auth"
	"wellnessconnect/internal/redis"
	"wellnessconnect/internal/service/account"
	"wellnessconnect/internal/service/booking"
	"wellnessconnect/internal/service/companion"
	"wellnessconnect/internal/service/journal"
	"wellnessconnect/internal/service/triage"
	"wellnessconnect/internal/worker"
)

const (
	defaultAddr     = ":8090"
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	log := e.log
	defer log.Sync()
	cfg := e.cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("opening database", "driver", e.dbType)
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		defer rdb.Close()
	}

	tokenTTL := time.Duration(cfg.BasicConfig.TokenTTLHours) * time.Hour
	authService := auth.NewService(db, rdb, tokenTTL)
	authService.StartJanitor(ctx, time.Duration(cfg.BasicConfig.TokenPurgeInterval)*time.Minute, log)

	sealer, err := journal.SealerFromEnv()
	if err != nil {
		return fmt.Errorf("load journal key: %w", err)
	}
	if sealer == nil {
		log.Warn("journal encryption disabled", "env", journal.KeyEnv)
	}
	entries, err := journal.Open(ctx, cfg.Journal, db, sealer)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := entries.Close(closeCtx); err != nil {
			log.Warn("close journal", "error", err)
		}
	}()

	replier, err := companion.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init companion: %w", err)
	}

	accounts := account.NewService(db)
	bookings := booking.NewService(db, accounts)
	rosterTTL := time.Duration(cfg.BasicConfig.RosterCacheTTLSecs) * time.Second
	board := triage.NewService(accounts, entries, bookings, rdb, rosterTTL, log)
	if err := board.Start(ctx); err != nil {
		return err
	}

	workers := worker.NewManager(worker.ConfigFrom(cfg.BasicConfig), log)
	defer workers.Stop()

	switch cfg.BasicConfig.LogMode {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(api.Deps{
		Accounts:  accounts,
		Auth:      authService,
		Journal:   entries,
		Booking:   bookings,
		Triage:    board,
		Companion: replier,
		Workers:   workers,
		Log:       log,
	})
	router := api.NewRouter(handler, cfg.BasicConfig.AllowedOrigins)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = defaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr, "journal", cfg.Journal.Driver, "redis", rdb != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
