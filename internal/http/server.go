// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nile/internal/http/handlers"
	httpmiddleware "nile/internal/http/middleware"
	"nile/internal/infra"
	"nile/internal/metrics"
	"nile/internal/modules/session"
	"nile/internal/planner"
)

type ServerDeps struct {
	Sessions *session.Registry
	// Planner backs POST /planner/message; nil leaves the route unregistered.
	Planner        planner.Planner
	PlannerTimeout time.Duration
	// Itineraries backs the gateway routes; nil leaves them unregistered.
	Itineraries handlers.ItineraryService
	// Verifier is optional; without it the API runs unauthenticated.
	Verifier infra.TokenVerifier
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(httpmiddleware.Recovery(), httpmiddleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if s.deps.Planner != nil {
		plannerHandler := handlers.NewPlannerHandler(s.deps.Planner, s.deps.PlannerTimeout)
		r.POST("/planner/message", plannerHandler.Message)
	}

	auth := httpmiddleware.Auth(s.deps.Verifier)

	if s.deps.Itineraries != nil {
		itineraryHandler := handlers.NewItineraryHandler(s.deps.Itineraries)
		its := r.Group("/itineraries", auth)
		its.POST("", itineraryHandler.Create)
		its.GET("", itineraryHandler.List)
		its.GET("/:id", itineraryHandler.Get)
	}

	if s.deps.Sessions != nil {
		sessionHandler := handlers.NewSessionHandler(s.deps.Sessions)
		api := r.Group("/api/sessions", auth)
		api.POST("", sessionHandler.Create)
		api.GET("/:id", sessionHandler.Get)
		api.DELETE("/:id", sessionHandler.Delete)
		api.POST("/:id/messages", sessionHandler.SendMessage)
		api.POST("/:id/preferences", sessionHandler.StartPreferences)
		api.POST("/:id/prompts/:promptId/select", sessionHandler.SelectQuickReply)
		api.POST("/:id/prompts/:promptId/submit", sessionHandler.SubmitQuickReplies)
		api.PUT("/:id/items/:itemId", sessionHandler.ToggleItem)
		api.PUT("/:id/cards/:activityId", sessionHandler.SaveCard)
		api.POST("/:id/confirm", sessionHandler.Confirm)
		api.POST("/:id/regenerate", sessionHandler.Regenerate)
	}
	return r
}
