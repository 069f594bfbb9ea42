package handlers

import (
	"discuss/internal/middleware"
	"discuss/internal/svc"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "discuss-service"

func NewRouter(s *svc.ServiceContext) *gin.Engine {
	h := New(s)

	// nil 指针不能直接放进接口
	var (
		bl  middleware.Blacklist
		lim middleware.Limiter
	)
	if s.Cache != nil {
		bl, lim = s.Cache, s.Cache
	}
	reg := s.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := middleware.NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.LoggerMiddleware(), middleware.TracingMiddleware(serviceName), metrics.Middleware())

	r.GET("/metrics", middleware.MetricsHandler(reg))

	// 公开路由
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/users/:id", h.GetUser)

	optional := r.Group("/", middleware.OptionalAuthMiddleware(s.Config, bl))
	{
		optional.GET("/posts/:id", h.GetPost)
		optional.GET("/posts/:id/thread", h.GetThread)
	}

	auth := r.Group("/", middleware.JWTAuthMiddleware(s.Config, bl))
	{
		auth.POST("/users/logout", h.Logout)
		auth.PUT("/users/me/password", h.ChangePassword)
		auth.POST("/posts", h.CreatePost)
		auth.POST("/posts/:id/comments", h.CreateComment)
		auth.PUT("/comments/:id", h.EditComment)
		auth.DELETE("/comments/:id", h.DeleteComment)
		auth.POST("/reactions/:kind/:id",
			middleware.RateLimitMiddleware(lim, "react", s.Config.ReactRateLimit, s.Config.ReactRateWindow),
			h.React)
	}
	return r
}
