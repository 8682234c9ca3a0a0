package routes

import (
	"net/http"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/config"
	"pollboard-backend/handlers"
	"pollboard-backend/middleware"
	"pollboard-backend/polls"
	"pollboard-backend/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Server wraps the HTTP server for graceful shutdown.
type Server struct {
	*http.Server
}

// Deps carries everything the router needs; tests assemble it over an
// in-memory database and limiter.
type Deps struct {
	DB      *gorm.DB
	Gateway *auth.Gateway
	Polls   *polls.Service
	Limiter ratelimit.Limiter
}

// SetupRouter assembles the middleware chain and routes. The edge pipeline
// order is fixed: security headers, rate limit, session refresh, route
// protection — in that order, before any handler.
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit(deps.Limiter))
	router.Use(middleware.Session(deps.Gateway, cfg.SessionMaxAge))
	router.Use(middleware.RequireAuth(deps.Gateway))

	h := handlers.New(deps.Gateway, deps.Polls, cfg.SessionMaxAge)

	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/healthz/status", handlers.SystemStatus)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.AuthBurst(cfg.AuthBurstRPS, cfg.AuthBurstSize))
		{
			authGroup.POST("/login", h.Login)
			authGroup.POST("/register", h.Register)
			authGroup.POST("/logout", h.Logout)
			authGroup.GET("/me", h.Me)
		}

		pollGroup := api.Group("/polls")
		{
			pollGroup.POST("", h.CreatePoll)
			pollGroup.GET("/mine", h.MyPolls)
			pollGroup.GET("/:id", h.GetPoll)
			pollGroup.GET("/:id/edit", h.GetPollForEdit)
			pollGroup.PUT("/:id", h.UpdatePoll)
			pollGroup.DELETE("/:id", h.DeletePoll)
			pollGroup.POST("/:id/vote", h.SubmitVote)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin(deps.Gateway))
		{
			admin.GET("/polls", h.AllPolls)
		}
	}

	return router
}

// StartServer begins serving in a goroutine and returns the handle.
func StartServer(cfg *config.Config, router *gin.Engine) *Server {
	srv := &Server{
		&http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	return srv
}
