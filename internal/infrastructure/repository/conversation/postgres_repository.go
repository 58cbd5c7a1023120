package conversation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/infrastructure/database/entities"
)

// ErrNotFound marks a lookup for a conversation that does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("conversation not found")

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID fetches a conversation by its public ID.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, publicID)
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	return entity.EtoD(), nil
}

// ListByUserID returns the user's conversations, newest first.
func (r *Repository) ListByUserID(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var rows []entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// RenameIfPlaceholder sets the summary only while it still holds the default
// placeholder. The guard lives in the WHERE clause so the rename happens at
// most once even under concurrent sends.
func (r *Repository) RenameIfPlaceholder(ctx context.Context, publicID, summary string) error {
	if err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("public_id = ? AND summary = ?", publicID, domain.SummaryPlaceholder).
		Update("summary", summary).Error; err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation and its messages, scoped to the owning user.
func (r *Repository) Delete(ctx context.Context, publicID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.Conversation
		if err := tx.Where("public_id = ? AND user_id = ?", publicID, userID).
			First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, publicID)
			}
			return fmt.Errorf("fetch conversation: %w", err)
		}
		if err := tx.Where("conversation_id = ?", entity.ID).
			Delete(&entities.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Delete(&entity).Error; err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
}

// Ensure interface compliance.
var _ domain.Repository = (*Repository)(nil)
