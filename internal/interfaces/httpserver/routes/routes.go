package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"gracechat-server/internal/interfaces/httpserver/handlers"
	"gracechat-server/internal/interfaces/httpserver/middlewares"
)

// Provider coordinates route registration under the /api prefix.
type Provider struct {
	handlers *handlers.Provider

	rateLimitRequests int
	rateLimitWindow   time.Duration
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider, rateLimitRequests int, rateLimitWindow time.Duration) *Provider {
	return &Provider{
		handlers:          handlerProvider,
		rateLimitRequests: rateLimitRequests,
		rateLimitWindow:   rateLimitWindow,
	}
}

// Register attaches all API routes to the gin engine. The quota applies only
// to the chat endpoint; history reads are not metered.
func (p *Provider) Register(engine *gin.Engine) {
	api := engine.Group("/api")

	api.POST("/chat",
		middlewares.RateLimitMiddleware(p.rateLimitRequests, p.rateLimitWindow),
		p.handlers.Chat.Ask,
	)

	api.GET("/conversations", p.handlers.Conversation.List)
	api.GET("/conversations/:conversation_id/messages", p.handlers.Conversation.Messages)
	api.DELETE("/conversations/:conversation_id", p.handlers.Conversation.Delete)
}
