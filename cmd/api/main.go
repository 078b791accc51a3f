package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduling-api/internal/cache"
	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/email"
	appointmentHandler "github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	availabilityHandler "github.com/jwalitptl/scheduling-api/internal/handler/availability"
	healthHandler "github.com/jwalitptl/scheduling-api/internal/handler/health"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/internal/router"
	availabilityService "github.com/jwalitptl/scheduling-api/internal/service/availability"
	bookingService "github.com/jwalitptl/scheduling-api/internal/service/booking"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Redis is optional: without it slot resolution just skips caching.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, slot caching disabled")
			rdb = nil
		}
	}

	availabilityRepo := postgres.NewAvailabilityRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	providerRepo := postgres.NewProviderRepository(db)

	slotCache := cache.NewSlotCache(rdb, cfg.Booking.SlotCacheTTL)

	var notifier bookingService.Notifier
	if cfg.SMTP.Host != "" {
		notifier = email.NewService(cfg.SMTP)
	}

	availabilitySvc := availabilityService.NewService(availabilityRepo, slotCache)
	bookingSvc := bookingService.NewService(
		availabilityRepo,
		appointmentRepo,
		clinicRepo,
		providerRepo,
		notifier,
		slotCache,
		cfg.Booking.DefaultTimezone,
	)

	r := router.NewRouter(
		healthHandler.NewHandler(db, rdb),
		availabilityHandler.NewHandler(availabilitySvc),
		appointmentHandler.NewHandler(bookingSvc),
		router.RouterConfig{
			RateLimit:  rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:  cfg.Server.RateLimitBurst,
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
