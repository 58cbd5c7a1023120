package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SummaryPlaceholder is the title every conversation starts with. The summary
// is rewritten from the first user message exactly once, guarded by this value.
const SummaryPlaceholder = "New Conversation"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Conversation is a persisted, user-owned thread of messages.
type Conversation struct {
	ID        uint      `json:"-"`
	PublicID  string    `json:"id"`
	UserID    string    `json:"-"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageMetadata carries optional structured data attached to a bot message,
// most notably the scripture citation behind a verse message.
type MessageMetadata struct {
	Reference   string `json:"reference,omitempty"`
	Translation string `json:"translation,omitempty"`
	IsVerse     bool   `json:"is_verse,omitempty"`
}

// Message is a single chat message. Messages are immutable once created;
// they are only ever appended to a conversation.
type Message struct {
	ID             uint             `json:"-"`
	PublicID       string           `json:"id"`
	ConversationID uint             `json:"-"`
	Sender         Sender           `json:"sender"`
	Text           string           `json:"text"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// New creates a conversation with the placeholder summary.
func New(userID string) *Conversation {
	now := time.Now()
	return &Conversation{
		PublicID:  NewPublicID("conv"),
		UserID:    userID,
		Summary:   SummaryPlaceholder,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage creates a message with a locally generated public ID.
func NewMessage(sender Sender, text string, metadata *MessageMetadata) Message {
	return Message{
		PublicID:  NewPublicID("msg"),
		Sender:    sender,
		Text:      text,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// NewPublicID generates a prefixed identifier like "conv_2f1a...".
func NewPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// SummaryFromQuestion truncates the first user message into a conversation
// title: at most 30 characters plus an ellipsis.
func SummaryFromQuestion(question string) string {
	runes := []rune(question)
	if len(runes) <= 30 {
		return question
	}
	return string(runes[:30]) + "..."
}
