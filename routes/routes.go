package routes

import (
	"time"

	"bookflow/handlers"
	"bookflow/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the chat transport endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle, requestsPerMin int) {
	api := r.Group("/api/chat")
	{
		api.Use(middleware.RateLimitMiddleware(requestsPerMin))
		api.POST("/messages", hb.ChatMessageHandler)
		api.POST("/sessions/:id/reset", hb.ResetSessionHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, requestsPerMin int) {
	// The web chat widget is served from other origins.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb, requestsPerMin)
	RegisterHealthRoute(r, hb)
}
