package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/api"
	"github.com/rapidlab/labbooking/config"
	"github.com/rapidlab/labbooking/internal/bootstrap"
	"github.com/rapidlab/labbooking/internal/cache"
	"github.com/rapidlab/labbooking/internal/kafka"
	"github.com/rapidlab/labbooking/internal/repository"
	"github.com/rapidlab/labbooking/internal/service/availability"
	"github.com/rapidlab/labbooking/internal/service/booking"
	"github.com/rapidlab/labbooking/internal/service/catalog"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.CatalogCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		redisCache,
		producer,
		logger,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.LockTTLMinutes)*time.Minute,
		time.Duration(cfg.Booking.PaymentDeadlineHours)*time.Hour,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	availabilityService := availability.NewAvailabilityService(bookingRepo)
	catalogService := catalog.NewCatalogService(catalogRepo, redisCache)

	bookingHandler := api.NewBookingHandler(bookingService)
	slotHandler := api.NewSlotHandler(availabilityService, bookingService)
	catalogHandler := api.NewCatalogHandler(catalogService)

	if err := bootstrap.Run(ctx, cfg, logger, bookingHandler, slotHandler, catalogHandler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
