package conversation

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/infrastructure/database/entities"
)

// MessageRepository persists chat messages.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs the message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a single message.
func (r *MessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	entity := entities.NewSchemaMessage(msg)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID = entity.ID
	return nil
}

// BulkInsert stores multiple messages in one statement.
func (r *MessageRepository) BulkInsert(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]entities.Message, 0, len(messages))
	for i := range messages {
		rows = append(rows, *entities.NewSchemaMessage(&messages[i]))
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("bulk insert messages: %w", err)
	}
	return nil
}

// ListByConversationID returns all messages for a conversation ordered by
// creation time ascending, i.e. display order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID uint) ([]domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].EtoD())
	}
	return out, nil
}

// Ensure interface compliance.
var _ domain.MessageRepository = (*MessageRepository)(nil)
