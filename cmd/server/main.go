package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-slot-booking/internal/booking"
	"github.com/iliyamo/match-slot-booking/internal/clock"
	"github.com/iliyamo/match-slot-booking/internal/config"
	"github.com/iliyamo/match-slot-booking/internal/database"
	"github.com/iliyamo/match-slot-booking/internal/handler"
	"github.com/iliyamo/match-slot-booking/internal/logger"
	"github.com/iliyamo/match-slot-booking/internal/queue"
	"github.com/iliyamo/match-slot-booking/internal/repository"
	"github.com/iliyamo/match-slot-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)

	svc := booking.NewService(store, clock.Real{},
		booking.WithLockTTL(cfg.LockTTL),
		booking.WithTxBudget(cfg.TxBudget),
		booking.WithEvents(queue.NewPublisher(log)),
		booking.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background: expired-lock sweeper and the audit event consumer.
	sweeper := booking.NewSweeper(svc, cfg.SweepInterval, log)
	go sweeper.Start(ctx)
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.WithError(err).Warn("audit consumer stopped")
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, availability cache disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg,
		handler.NewHealthHandler(store.DB()),
		handler.NewAuthHandler(cfg, users),
		handler.NewMatchHandler(store, svc),
		handler.NewCheckoutHandler(svc, store),
		rdb,
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TxBudget)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	addr := ":" + cfg.Port
	log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Info("server stopped")
	}
}
