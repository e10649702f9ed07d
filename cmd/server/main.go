package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/prakhar-shukla17/SlotSwapper/internal/api/http"
	appAuth "github.com/prakhar-shukla17/SlotSwapper/internal/application/auth"
	appNotification "github.com/prakhar-shukla17/SlotSwapper/internal/application/notification"
	appSlot "github.com/prakhar-shukla17/SlotSwapper/internal/application/slot"
	appSwap "github.com/prakhar-shukla17/SlotSwapper/internal/application/swap"
	appUser "github.com/prakhar-shukla17/SlotSwapper/internal/application/user"
	"github.com/prakhar-shukla17/SlotSwapper/internal/config"
	"github.com/prakhar-shukla17/SlotSwapper/internal/infrastructure/postgres"
	"github.com/prakhar-shukla17/SlotSwapper/internal/infrastructure/sse"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	slotRepo := postgres.NewSlotRepository(pool)
	swapRepo := postgres.NewSwapRepository(pool)
	txRunner := postgres.NewTxRunner(pool, logger)

	// infrastructure
	sseHub := sse.NewHub()
	defer sseHub.Stop()

	// services
	fanout := appNotification.NewService(sseHub, logger)
	userSvc := appUser.NewService(userRepo, logger)
	authSvc := appAuth.NewService(userRepo, sessionRepo, cfg.SessionTTL, logger)
	slotSvc := appSlot.NewService(slotRepo, swapRepo, txRunner, fanout, logger)
	swapSvc := appSwap.NewService(slotRepo, swapRepo, txRunner, fanout, cfg.SwapRequestTTL, logger)

	// API server
	apiServer := httpapi.NewServer(authSvc, userSvc, slotSvc, swapSvc, sseHub, cfg.SessionCookieName, cfg.SessionCookieSecure)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// background loops
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go appSwap.NewSweeper(swapSvc, cfg.SweepInterval, logger).Run(sweepCtx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := sessionRepo.DeleteExpired(context.Background()); err == nil && n > 0 {
				logger.Info().Int("sessions", n).Msg("pruned expired sessions")
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSweep()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
