package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ecom-api/api/swagger"
	"github.com/noah-isme/ecom-api/internal/handler"
	"github.com/noah-isme/ecom-api/internal/middleware"
	"github.com/noah-isme/ecom-api/internal/repository"
	"github.com/noah-isme/ecom-api/internal/service"
	"github.com/noah-isme/ecom-api/pkg/cache"
	"github.com/noah-isme/ecom-api/pkg/config"
	"github.com/noah-isme/ecom-api/pkg/database"
	"github.com/noah-isme/ecom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ecom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ecom-api/pkg/middleware/requestid"
	"github.com/noah-isme/ecom-api/pkg/ratelimit"
)

// @title Ecom API
// @version 0.1.0
// @description Storefront API with token-based authentication
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var counter ratelimit.Counter
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		if !cfg.RateLimit.FallbackLocal {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		logr.Warn("redis unavailable, rate limiting with local counter", zap.Error(err))
		counter = ratelimit.NewMemoryCounter()
	} else {
		defer redisClient.Close() //nolint:errcheck
		counter = ratelimit.NewRedisCounter(redisClient)
	}
	limiter := ratelimit.New(counter, cfg.RateLimit, logr)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	productSvc := service.NewProductService(productRepo, nil, logr)
	orderSvc := service.NewOrderService(orderRepo, userRepo, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc, cfg.JWT.RefreshExpiration)
	userHandler := handler.NewUserHandler(userSvc)
	productHandler := handler.NewProductHandler(productSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authGuard := middleware.JWT(authSvc)
	throttle := middleware.RateLimit(limiter, metricsSvc, logr)

	users := r.Group("/users")
	{
		users.POST("/register", throttle, userHandler.Register)
		users.POST("/login", throttle, authHandler.Login)
		users.POST("/refresh", throttle, authHandler.Refresh)
		users.POST("/logout", authHandler.Logout)
		users.GET("/me", authGuard, userHandler.Me)
	}

	products := r.Group("/products")
	{
		products.GET("", productHandler.List)
		products.GET("/export", authGuard, productHandler.Export)
		products.GET("/:id", productHandler.Get)
		products.POST("", authGuard, productHandler.Create)
	}

	orders := r.Group("/orders", authGuard)
	{
		orders.POST("", orderHandler.Create)
		orders.GET("/:id", orderHandler.Get)
		orders.GET("/:id/receipt", orderHandler.Receipt)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
