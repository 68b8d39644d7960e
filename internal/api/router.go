package api

import (
	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/api/handlers"
	"github.com/viewdesk/viewdesk/internal/api/middleware"
	"github.com/viewdesk/viewdesk/internal/core/auth"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Console    *handlers.ConsoleHandler
	View       *handlers.ViewHandler
	Draft      *handlers.DraftHandler
	History    *handlers.HistoryHandler
	Compare    *handlers.CompareHandler
	Navigation *handlers.NavigationHandler
	Profile    *handlers.ProfileHandler
	Chat       *handlers.ChatHandler
}

type Router struct {
	engine         *gin.Engine
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(authService *auth.Service, rateLimiter *middleware.RateLimiter, h Handlers) *Router {
	return &Router{
		authMiddleware: middleware.NewAuthMiddleware(authService),
		rateLimiter:    rateLimiter,
		h:              h,
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestIDMiddleware())
	r.engine.Use(middleware.LoggerMiddleware())
	r.engine.Use(middleware.ErrorHandler())
	r.engine.Use(middleware.ClientInfoMiddleware())

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth routes (public)
	api.POST("/auth/login", r.h.Auth.Login)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.authMiddleware.Authenticate())
	{
		protected.GET("/auth/me", r.h.Auth.Me)

		console := protected.Group("/console")
		{
			console.POST("/bootstrap", r.h.Console.Bootstrap)
			console.GET("/state", r.h.Console.State)
			console.DELETE("/notices", r.h.Console.ClearNotices)
		}

		views := protected.Group("/views")
		{
			views.GET("", r.h.View.List)
			views.POST("", r.h.View.Create)
			views.PUT("/selected", r.h.View.Update)
			views.DELETE("/selected", r.h.View.Delete)
			views.POST("/selected/duplicate", r.h.View.Duplicate)
			views.POST("/selected/load", r.h.View.Load)
			views.GET("/selected/results", r.h.View.Results)
			views.GET("/selected/results/summary", r.h.View.ResultsSummary)
			views.POST("/:id/select", r.h.View.Select)
		}

		d := protected.Group("/draft")
		{
			d.GET("", r.h.Draft.Get)
			d.PUT("", r.h.Draft.Replace)
			d.GET("/request", r.h.Draft.Request)
			d.POST("/chat", r.h.Draft.ConsumeChat)

			d.POST("/filters", r.h.Draft.AddFilter)
			d.PATCH("/filters/:index", r.h.Draft.UpdateFilter)
			d.DELETE("/filters/:index", r.h.Draft.RemoveFilter)
			d.POST("/filters/:index/move", r.h.Draft.MoveFilter)

			d.POST("/facets", r.h.Draft.AddFacet)
			d.PATCH("/facets/:index", r.h.Draft.UpdateFacet)
			d.DELETE("/facets/:index", r.h.Draft.RemoveFacet)
			d.POST("/facets/:index/move", r.h.Draft.MoveFacet)
		}

		protected.GET("/history", r.h.History.List)
		protected.POST("/history/:index/restore", r.h.History.Restore)

		cmp := protected.Group("/compare")
		{
			cmp.GET("", r.h.Compare.Versions)
			cmp.GET("/summary", r.h.Compare.Summary)
			cmp.GET("/current/:index", r.h.Compare.WithCurrent)
		}

		nav := protected.Group("/navigation")
		{
			nav.GET("", r.h.Navigation.Get)
			nav.POST("/navigate", r.h.Navigation.Navigate)
			nav.POST("/back", r.h.Navigation.Back)
			nav.POST("/forward", r.h.Navigation.Forward)
		}

		profiles := protected.Group("/profiles")
		{
			profiles.GET("", r.h.Profile.List)
			profiles.POST("", r.h.Profile.Create)
			profiles.GET("/current", r.h.Profile.Current)
			profiles.GET("/export", r.h.Profile.Export)
			profiles.POST("/import", r.h.Profile.Import)
			profiles.GET("/:id", r.h.Profile.Get)
			profiles.PUT("/:id", r.h.Profile.Update)
			profiles.DELETE("/:id", r.h.Profile.Delete)
			profiles.POST("/:id/activate", r.h.Profile.Activate)
		}

		// Chat completions are rate limited per operator or client IP.
		chat := protected.Group("/chat")
		{
			chat.GET("", r.h.Chat.Transcript)
			chat.DELETE("", r.h.Chat.Clear)
			chat.POST("/messages", r.rateLimiter.Handler(), r.h.Chat.Send)
			chat.GET("/context", r.h.Chat.Context)
			chat.POST("/context", r.h.Chat.LoadContext)
			chat.DELETE("/context", r.h.Chat.ClearContext)
			chat.POST("/apply", r.h.Chat.Apply)
		}
	}
}
