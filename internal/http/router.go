package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/bloghub/internal/auth"
	"github.com/geocoder89/bloghub/internal/config"
	"github.com/geocoder89/bloghub/internal/http/handlers"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/geocoder89/bloghub/internal/observability"
	"github.com/geocoder89/bloghub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("bloghub"))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	// a registry per router keeps repeated construction (tests) panic-free
	promReg := prometheus.NewRegistry()
	prom := observability.NewProm(promReg)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

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

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	blogsRepo := postgres.NewBlogsRepo(pool, prom, cfg.WordsPerMinute)

	// auth strategies, one per route flavour
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	bearer := auth.NewBearerStrategy(jwtManager, usersRepo)
	login := auth.NewLoginStrategy(usersRepo)
	signup := auth.NewSignupStrategy(usersRepo)

	authMiddleware := middlewares.NewAuthMiddleware(bearer)

	// credential endpoints get a rate limit; redis-backed when configured so
	// the budget holds across replicas
	var limiter middlewares.Limiter
	authWindow := time.Duration(cfg.AuthRateWindowSeconds) * time.Second

	if rdb != nil {
		limiter = middlewares.NewRedisRateLimiter(rdb, log, cfg.AuthRateLimit, authWindow)
	} else {
		limiter = middlewares.NewRateLimiter(cfg.AuthRateLimit, authWindow)
	}

	// wire up handlers
	authHandler := handlers.NewAuthHandler(signup, login, jwtManager)
	blogsHandler := handlers.NewBlogsHandler(blogsRepo)

	authRoutes := r.Group("/auth")
	authRoutes.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authRoutes.POST("/signup", authHandler.SignUp)
	authRoutes.POST("/login", authHandler.Login)

	blogs := r.Group("/blogs")
	blogs.GET("", blogsHandler.ListBlogs)
	blogs.GET("/by_user", authMiddleware.RequireAuth(), blogsHandler.ListBlogsByUser)
	blogs.GET("/:id", blogsHandler.GetBlogByID)
	blogs.POST("", authMiddleware.RequireAuth(), blogsHandler.CreateBlog)
	blogs.POST("/:id", authMiddleware.RequireAuth(), blogsHandler.EditBlog)
	blogs.POST("/publish/:id", authMiddleware.RequireAuth(), blogsHandler.PublishBlog)
	blogs.POST("/delete/:id", authMiddleware.RequireAuth(), blogsHandler.DeleteBlog)

	return r
}
