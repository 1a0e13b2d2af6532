package handlers

import (
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type RouterConfig struct {
	TaskService services.TaskService
	Logger      log.FieldLogger
	// Monitor, RateLimiter and CORSOrigins are optional.
	Monitor     *monitoring.Monitor
	RateLimiter *middleware.IPRateLimiter
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithLog(cfg.Logger))
	router.Use(middleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}
	if cfg.Monitor != nil {
		router.Use(cfg.Monitor.Middleware())
		cfg.Monitor.RegisterRoutes(router)
	}

	api := router.Group("/")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	NewTaskHandler(cfg.TaskService, cfg.Logger).RegisterRoutes(api)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}
