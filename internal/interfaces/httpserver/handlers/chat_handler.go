package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gracechat-server/internal/domain/guidance"
	"gracechat-server/internal/infrastructure/metrics"
	"gracechat-server/internal/infrastructure/observability"
	"gracechat-server/internal/interfaces/httpserver/dto"
)

// ChatHandler exposes the question-answering endpoint.
type ChatHandler struct {
	provider     guidance.Provider
	providerName string
	log          zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(provider guidance.Provider, providerName string, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		provider:     provider,
		providerName: providerName,
		log:          log.With().Str("handler", "chat").Logger(),
	}
}

// Ask handles POST /api/chat. Upstream and parse failures collapse into the
// same opaque 500; only the quota rejection (handled in middleware) carries a
// distinct status.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	ctx, span := observability.StartGuidanceSpan(c.Request.Context(), h.providerName)
	defer span.End()

	start := time.Now()
	resp, err := h.provider.Guidance(ctx, question)
	metrics.GuidanceDuration.WithLabelValues(h.providerName).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.RecordError(span, err)
		metrics.GuidanceCallsTotal.WithLabelValues(h.providerName, outcome(err)).Inc()
		h.log.Error().Err(err).Msg("guidance request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to process your question right now."})
		return
	}

	metrics.GuidanceCallsTotal.WithLabelValues(h.providerName, "ok").Inc()
	c.JSON(http.StatusOK, dto.FromGuidance(resp))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, guidance.ErrMalformedAnswer):
		return "parse_error"
	default:
		return "upstream_error"
	}
}
