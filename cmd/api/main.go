package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/audit"
	"github.com/imrishuroy/go-cached-user-api/internal/cache"
	"github.com/imrishuroy/go-cached-user-api/internal/config"
	"github.com/imrishuroy/go-cached-user-api/internal/handlers"
	"github.com/imrishuroy/go-cached-user-api/internal/metrics"
	"github.com/imrishuroy/go-cached-user-api/internal/middleware"
	"github.com/imrishuroy/go-cached-user-api/internal/users"
)

func setupRouter(cfg handlers.HandlerConfig, shipper middleware.RecordShipper, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AuditLogger(shipper, logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "User Management API",
			"version": "1.0.0",
		})
	})

	r.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		status := gin.H{"status": "healthy", "database": "connected", "cache": "connected"}
		code := http.StatusOK

		if err := cfg.DB.PingContext(ctx); err != nil {
			status["database"] = "error: " + err.Error()
			status["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		if err := cfg.Cache.Ping(ctx); err != nil {
			status["cache"] = "error: " + err.Error()
			status["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, status)
	})

	handlers.RegisterUsersRoutes(r, cfg)

	return r
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	settings := config.Load()
	ctx := context.Background()

	sqldb, err := sql.Open("postgres", settings.PostgresDSN())
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	// create the users table on startup so fresh environments just work
	if _, err := db.NewCreateTable().Model((*users.User)(nil)).IfNotExists().Exec(ctx); err != nil {
		logger.Fatal("create users table", zap.Error(err))
	}

	var pub *metrics.Publisher
	if settings.MetricsEnabled {
		cw, err := metrics.NewCloudWatchClient(ctx)
		if err != nil {
			logger.Fatal("init cloudwatch client", zap.Error(err))
		}
		pub = metrics.NewPublisher(cw, settings.MetricsNamespace, logger)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     settings.RedisAddr(),
		Password: settings.RedisPassword,
	})
	cacheClient := cache.New(rdb, logger, pub)

	shipper := audit.NewShipper(audit.Config{
		Addr:     settings.QuestDBAddr(),
		User:     settings.QuestDBUser,
		Password: settings.QuestDBPassword,
		Table:    settings.QuestDBTable,
	}, logger, pub)

	cfg := handlers.HandlerConfig{
		DB:     db,
		Cache:  cacheClient,
		Logger: logger,
	}

	r := setupRouter(cfg, shipper, logger)

	logger.Info("listening", zap.String("addr", settings.ListenAddr))
	if err := r.Run(settings.ListenAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
