package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// NewRouter wires middlewares, repositories and handlers into the engine.
// rdb may be nil; the rate limiter then falls back to in-process counters.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// each router owns its registry so tests can build routers freely
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	var counter middlewares.CounterStore = middlewares.NewMemoryCounterStore()

	if rdb != nil {
		counter = middlewares.NewRedisCounterStore(rdb)
	}

	limiter := middlewares.NewRateLimiter(counter, cfg.RateLimit, cfg.RateWindow)

	// middleware, outermost first

	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Error("panic recovered", "err", err, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "Something went wrong",
			},
		})
	}))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("userhub"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(limiter.Middleware(middlewares.KeyByUserOrIP))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up the store and services

	usersRepo := postgres.NewUsersRepo(pool, prom)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, log)
	guard := middlewares.NewAuthMiddleware(jwtManager, usersRepo, log)

	// open routes
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	// guarded routes
	users := r.Group("/users", guard.RequireAuth())
	users.GET("", usersHandler.List)
	users.PATCH("/block", usersHandler.Block)
	users.PATCH("/unblock", usersHandler.Unblock)
	users.DELETE("", usersHandler.Delete)

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondNotFound(c, "Route not found")
	})

	return r
}
