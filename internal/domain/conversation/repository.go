package conversation

import "context"

// Repository exposes CRUD operations for conversation metadata.
type Repository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]*Conversation, error)
	// RenameIfPlaceholder updates the summary only while it still holds
	// SummaryPlaceholder, so the title is rewritten at most once.
	RenameIfPlaceholder(ctx context.Context, publicID, summary string) error
	Delete(ctx context.Context, publicID, userID string) error
}

// MessageRepository persists individual chat messages.
type MessageRepository interface {
	Insert(ctx context.Context, message *Message) error
	BulkInsert(ctx context.Context, messages []Message) error
	ListByConversationID(ctx context.Context, conversationID uint) ([]Message, error)
}
