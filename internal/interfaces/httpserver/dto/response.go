package dto

import (
	"time"

	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/domain/guidance"
)

// ScripturePayload is one citation in the chat response contract.
type ScripturePayload struct {
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// InterpretationPayload is one explanatory passage with its citations.
type InterpretationPayload struct {
	View       string             `json:"view"`
	Scriptures []ScripturePayload `json:"scriptures"`
}

// AskResponse is the success body of POST /api/chat. The first interpretation
// is the primary one; clients read it positionally.
type AskResponse struct {
	Interpretations []InterpretationPayload `json:"interpretations"`
}

// FromGuidance maps the domain response onto the wire contract.
func FromGuidance(resp *guidance.Response) AskResponse {
	out := AskResponse{Interpretations: make([]InterpretationPayload, 0, len(resp.Interpretations))}
	for _, interp := range resp.Interpretations {
		payload := InterpretationPayload{
			View:       interp.View,
			Scriptures: make([]ScripturePayload, 0, len(interp.Scriptures)),
		}
		for _, s := range interp.Scriptures {
			payload.Scriptures = append(payload.Scriptures, ScripturePayload(s))
		}
		out.Interpretations = append(out.Interpretations, payload)
	}
	return out
}

// ConversationPayload is a conversation row in the history listing.
type ConversationPayload struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// FromConversation maps the domain conversation onto the wire contract.
func FromConversation(conv *conversation.Conversation) ConversationPayload {
	return ConversationPayload{
		ID:        conv.PublicID,
		Summary:   conv.Summary,
		CreatedAt: conv.CreatedAt,
	}
}

// MessagePayload is one transcript entry.
type MessagePayload struct {
	ID        string                        `json:"id"`
	Sender    string                        `json:"sender"`
	Text      string                        `json:"text"`
	Metadata  *conversation.MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
}

// FromMessage maps the domain message onto the wire contract.
func FromMessage(msg conversation.Message) MessagePayload {
	return MessagePayload{
		ID:        msg.PublicID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		Metadata:  msg.Metadata,
		CreatedAt: msg.CreatedAt,
	}
}
