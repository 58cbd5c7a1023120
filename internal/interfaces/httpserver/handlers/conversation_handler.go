package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/infrastructure/auth"
	conversationrepo "gracechat-server/internal/infrastructure/repository/conversation"
	"gracechat-server/internal/interfaces/httpserver/dto"
)

// ConversationHandler exposes the history endpoints backing the app's
// conversation list and transcript screens.
type ConversationHandler struct {
	conversations conversation.Repository
	messages      conversation.MessageRepository
	log           zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(
	conversations conversation.Repository,
	messages conversation.MessageRepository,
	log zerolog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		log:           log.With().Str("handler", "conversation").Logger(),
	}
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.ListByUserID(c.Request.Context(), callerID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("list conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	payload := make([]dto.ConversationPayload, 0, len(convs))
	for _, conv := range convs {
		payload = append(payload, dto.FromConversation(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": payload})
}

// Messages handles GET /api/conversations/:conversation_id/messages.
func (h *ConversationHandler) Messages(c *gin.Context) {
	publicID := c.Param("conversation_id")

	conv, err := h.conversations.FindByPublicID(c.Request.Context(), publicID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, conversationrepo.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if conv.UserID != callerID(c) {
		// Ownership failures look identical to missing rows.
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	msgs, err := h.messages.ListByConversationID(c.Request.Context(), conv.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	payload := make([]dto.MessagePayload, 0, len(msgs))
	for _, msg := range msgs {
		payload = append(payload, dto.FromMessage(msg))
	}
	c.JSON(http.StatusOK, gin.H{"messages": payload})
}

// Delete handles DELETE /api/conversations/:conversation_id.
func (h *ConversationHandler) Delete(c *gin.Context) {
	publicID := c.Param("conversation_id")

	if err := h.conversations.Delete(c.Request.Context(), publicID, callerID(c)); err != nil {
		if errors.Is(err, conversationrepo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.log.Error().Err(err).Msg("delete conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": publicID})
}

// callerID resolves the stable user identifier: the token subject when auth
// is enabled, the guest fallback otherwise.
func callerID(c *gin.Context) string {
	if sub := auth.Subject(c); sub != "" {
		return sub
	}
	return "guest"
}
