package http

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

const (
	apiRateLimit  = 600
	apiRateWindow = time.Minute
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDependencies struct {
	TrackerHandler *TrackerHandler
	StatsHandler   *StatsHandler
	TokenService   *services.TokenService
	Store          Pinger
	Redis          *redis.Client
	StartTime      time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		dbStatus := "connected"
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			dbStatus = "unreachable"
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if deps.Redis.Ping(c.Request.Context()).Err() != nil {
				redisStatus = "unreachable"
			}
		}

		statusCode := 200
		if dbStatus == "unreachable" {
			statusCode = 503
		}

		c.JSON(statusCode, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	})

	var validator middleware.TokenValidator
	if deps.TokenService != nil {
		validator = deps.TokenService
	}

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(validator))
	if deps.Redis != nil {
		apiV1.Use(middleware.RateLimiterMiddleware(deps.Redis, apiRateLimit, apiRateWindow))
	}
	{
		deps.TrackerHandler.RegisterRoutes(apiV1)
		deps.StatsHandler.RegisterRoutes(apiV1)
	}

	return router
}
