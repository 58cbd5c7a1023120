package handlers

import (
	"github.com/rs/zerolog"

	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/domain/guidance"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider.
func NewProvider(
	guide guidance.Provider,
	providerName string,
	conversations conversation.Repository,
	messages conversation.MessageRepository,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Chat:         NewChatHandler(guide, providerName, log),
		Conversation: NewConversationHandler(conversations, messages, log),
	}
}
