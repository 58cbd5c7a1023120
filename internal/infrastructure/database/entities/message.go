package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"gracechat-server/internal/domain/conversation"
)

// Message stores each chat message for a conversation. Rows are append-only;
// nothing ever updates a message after insert.
type Message struct {
	ID             uint           `gorm:"primaryKey"`
	PublicID       string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint           `gorm:"index:idx_message_conversation_created;not null"`
	Sender         string         `gorm:"type:varchar(16);not null"`
	Text           string         `gorm:"type:text;not null"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"index:idx_message_conversation_created"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// EtoD converts the database entity to the domain model.
func (m *Message) EtoD() *conversation.Message {
	var metadata *conversation.MessageMetadata
	if len(m.Metadata) > 0 {
		var decoded conversation.MessageMetadata
		if err := json.Unmarshal(m.Metadata, &decoded); err == nil {
			metadata = &decoded
		}
	}

	return &conversation.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Sender:         conversation.Sender(m.Sender),
		Text:           m.Text,
		Metadata:       metadata,
		CreatedAt:      m.CreatedAt,
	}
}

// NewSchemaMessage creates a database entity from the domain model.
func NewSchemaMessage(m *conversation.Message) *Message {
	entity := &Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Sender:         string(m.Sender),
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
	if m.Metadata != nil {
		if raw, err := json.Marshal(m.Metadata); err == nil {
			entity.Metadata = raw
		}
	}
	return entity
}
