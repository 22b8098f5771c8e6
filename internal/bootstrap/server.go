package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/api"
	"github.com/rapidlab/labbooking/config"
)

// Run starts the HTTP API server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	bookings *api.BookingHandler, slots *api.SlotHandler, catalog *api.CatalogHandler) error {

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	bookings.Register(v1.Group("/bookings"))
	slots.Register(v1.Group("/slots"))
	catalog.Register(v1)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerURL != "" {
		router.StaticFile("/docs/swagger.json", "docs/swagger.json")
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(cfg.HTTP.SwaggerURL))))
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("http server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
