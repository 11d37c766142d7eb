package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/badwords"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/config"
	"github.com/joy095/parking/config/db"
	redisclient "github.com/joy095/parking/config/redis"
	"github.com/joy095/parking/logger"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/cors"
	"github.com/joy095/parking/routes"
	"github.com/joy095/parking/utils/mail"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	config.LoadEnv()
	logger.InitLoggers()
}

func main() {
	db.Connect()
	defer db.Close()

	port := config.GetEnv("PORT", "8081")

	if config.GetEnvBool("RUN_MIGRATIONS", false) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx, db.DB)
		cancel()
		if err != nil {
			logger.ErrorLogger.Errorf("Migrations failed: %v", err)
			os.Exit(1)
		}
	}

	if path := config.GetEnv("BADWORDS_FILE", ""); path != "" {
		if err := badwords.LoadBadWords(path); err != nil {
			logger.WarnLogger.Warnf("Keeping built-in bad words list: %v", err)
		}
	}

	// Redis backs OTPs, refresh tokens and rate limits. Rate limits fail open
	// without it, so a missing Redis is logged rather than fatal.
	if _, err := redisclient.GetRedisClient(context.Background()); err != nil {
		logger.WarnLogger.Warnf("Redis unavailable at startup: %v", err)
	}
	defer redisclient.CloseRedis()

	gateway, err := clients.NewMobileMoneyGatewayFromEnv()
	if err != nil {
		logger.ErrorLogger.Errorf("Payment gateway: %v", err)
		os.Exit(1)
	}
	logger.InfoLogger.Infof("Using %s for mobile money payments", gateway.Name())

	var notifier mail.Notifier
	if n := mail.NewSMTPNotifierFromEnv(); n != nil {
		notifier = n
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinLogger())
	r.Use(cors.CorsMiddleware())

	routes.RegisterUserRoutes(r, db.DB, clients.NewNotifyAfricaClientFromEnv())
	routes.RegisterLotRoutes(r, db.DB)
	routes.RegisterVehicleRoutes(r, db.DB)
	routes.RegisterBookingRoutes(r, db.DB, notifier)
	routes.RegisterPaymentRoutes(r, db.DB, gateway)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from parking service"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.InfoLogger.Infof("Server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorLogger.Errorf("Server failed to listen: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server exited gracefully.")
}
