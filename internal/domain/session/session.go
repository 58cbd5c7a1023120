// Package session implements the conversation session manager: the single
// point of coordination between a user's chat actions, optimistic in-memory
// state, remote persistence, and the guidance proxy.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/domain/guidance"
)

const (
	// FallbackConnectionMessage replaces any upstream or parse failure; raw
	// errors never reach the chat transcript.
	FallbackConnectionMessage = "I'm sorry, I'm having trouble connecting right now. Please try again in a moment."

	// FallbackQuotaMessage is shown when the proxy rejects the question with
	// a rate-limit status.
	FallbackQuotaMessage = "You've asked quite a few questions in a short while. Please wait a little before asking again."
)

// Session holds the ephemeral state of one active conversation. It is an
// injectable object owned by its caller, not a process-wide singleton; its
// lifecycle matches the screen or connection that created it.
type Session struct {
	userID        string
	conversations conversation.Repository
	messages      conversation.MessageRepository
	guide         guidance.Provider
	log           zerolog.Logger

	mu      sync.Mutex
	conv    *conversation.Conversation // nil while the session is unsaved
	list    []conversation.Message
	loading bool
	gen     uint64 // bumped on every reset; guards stale responses

	persistWG sync.WaitGroup
}

// New constructs a session for one user.
func New(
	userID string,
	conversations conversation.Repository,
	messages conversation.MessageRepository,
	guide guidance.Provider,
	log zerolog.Logger,
) *Session {
	return &Session{
		userID:        userID,
		conversations: conversations,
		messages:      messages,
		guide:         guide,
		log:           log.With().Str("component", "session").Str("user_id", userID).Logger(),
	}
}

// SendUserMessage appends the question optimistically, persists it, asks the
// guidance provider and appends the bot answer(s). Failures resolve to a
// fallback chat message; no error escapes during the chat flow.
func (s *Session) SendUserMessage(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	userMsg := conversation.NewMessage(conversation.SenderUser, text, nil)

	s.mu.Lock()
	firstMessage := s.conv == nil
	s.list = append(s.list, userMsg)
	s.loading = true
	gen := s.gen
	s.mu.Unlock()

	conv := s.ensureConversation(ctx, gen)
	if conv != nil {
		userMsg.ConversationID = conv.ID
		s.persistAsync(func(ctx context.Context) error {
			return s.messages.Insert(ctx, &userMsg)
		})
	}

	resp, err := s.guide.Guidance(ctx, text)
	if err != nil {
		fallback := FallbackConnectionMessage
		if errors.Is(err, guidance.ErrQuotaExceeded) {
			fallback = FallbackQuotaMessage
		}
		s.log.Warn().Err(err).Msg("guidance request failed")
		s.applyIfCurrent(gen, conversation.NewMessage(conversation.SenderBot, fallback, nil))
		s.clearLoading(gen)
		return
	}

	primary, ok := resp.Primary()
	if !ok {
		s.log.Warn().Msg("guidance response carried no interpretation")
		s.applyIfCurrent(gen, conversation.NewMessage(conversation.SenderBot, FallbackConnectionMessage, nil))
		s.clearLoading(gen)
		return
	}

	botMsgs := []conversation.Message{
		conversation.NewMessage(conversation.SenderBot, primary.View, nil),
	}
	if scripture, ok := resp.PrimaryScripture(); ok {
		verse := conversation.NewMessage(conversation.SenderBot, FormatVerse(scripture), &conversation.MessageMetadata{
			Reference:   scripture.Reference,
			Translation: scripture.Translation,
			IsVerse:     true,
		})
		// Both bot messages land in the same tick; nudge the verse timestamp
		// so it always sorts after the explanation.
		verse.CreatedAt = botMsgs[0].CreatedAt.Add(time.Millisecond)
		botMsgs = append(botMsgs, verse)
	}

	applied := s.applyIfCurrent(gen, botMsgs...)
	if applied && conv != nil {
		for i := range botMsgs {
			botMsgs[i].ConversationID = conv.ID
		}
		publicID := conv.PublicID
		s.persistAsync(func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return s.messages.BulkInsert(ctx, botMsgs)
			})
			if firstMessage {
				g.Go(func() error {
					return s.conversations.RenameIfPlaceholder(ctx, publicID, conversation.SummaryFromQuestion(text))
				})
			}
			return g.Wait()
		})
	}
	s.clearLoading(gen)
}

// LoadConversation discards local state and replaces it with the persisted
// messages for the given conversation, ordered by creation time.
func (s *Session) LoadConversation(ctx context.Context, publicID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.list = nil
	s.conv = nil
	s.loading = true
	s.mu.Unlock()
	defer s.clearLoading(gen)

	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return fmt.Errorf("fetch conversation: %w", err)
	}
	msgs, err := s.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// The user switched again while this load was in flight.
		return nil
	}
	s.conv = conv
	s.list = msgs
	return nil
}

// ClearMessages resets the session to a fresh, as-yet-unpersisted state.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	s.gen++
	s.list = nil
	s.conv = nil
	s.loading = false
	s.mu.Unlock()
}

// FetchConversations lists the user's conversations.
func (s *Session) FetchConversations(ctx context.Context) ([]*conversation.Conversation, error) {
	return s.conversations.ListByUserID(ctx, s.userID)
}

// DeleteConversation removes a conversation. Deleting the active one also
// clears local session state.
func (s *Session) DeleteConversation(ctx context.Context, publicID string) error {
	if err := s.conversations.Delete(ctx, publicID, s.userID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.mu.Lock()
	active := s.conv != nil && s.conv.PublicID == publicID
	s.mu.Unlock()
	if active {
		s.ClearMessages()
	}
	return nil
}

// Messages returns a copy of the current transcript in display order.
func (s *Session) Messages() []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conversation.Message, len(s.list))
	copy(out, s.list)
	return out
}

// ConversationID returns the active conversation public ID, or false for an
// unsaved session.
func (s *Session) ConversationID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return "", false
	}
	return s.conv.PublicID, true
}

// Loading reports whether a guidance round trip is outstanding.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Flush waits for background persistence to settle. Called on shutdown.
func (s *Session) Flush() {
	s.persistWG.Wait()
}

// FormatVerse renders a scripture citation as a verse message: the quotation
// followed by an attribution line with reference and translation.
func FormatVerse(s guidance.Scripture) string {
	return fmt.Sprintf("\"%s\"\n— %s (%s)", s.Text, s.Reference, s.Translation)
}

// ensureConversation lazily creates the conversation row on the first
// persisted message. Creation is awaited; a failure is logged and the chat
// continues unpersisted.
func (s *Session) ensureConversation(ctx context.Context, gen uint64) *conversation.Conversation {
	s.mu.Lock()
	if s.conv != nil {
		conv := s.conv
		s.mu.Unlock()
		return conv
	}
	s.mu.Unlock()

	conv := conversation.New(s.userID)
	if err := s.conversations.Create(ctx, conv); err != nil {
		s.log.Error().Err(err).Msg("create conversation")
		return nil
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		// The user switched away while the row was being created. Drop the
		// orphan so it never shows up in the history list.
		publicID := conv.PublicID
		s.persistAsync(func(ctx context.Context) error {
			return s.conversations.Delete(ctx, publicID, s.userID)
		})
		return nil
	}
	s.conv = conv
	s.mu.Unlock()
	return conv
}

// applyIfCurrent appends messages only when the session still shows the state
// the request was sent from; late responses after a switch are dropped.
func (s *Session) applyIfCurrent(gen uint64, msgs ...conversation.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.list = append(s.list, msgs...)
	return true
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// clearLoading drops the loading flag unless the session was reset while the
// request was in flight.
func (s *Session) clearLoading(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.loading = false
	}
	s.mu.Unlock()
}

// persistAsync runs a persistence call in the background. Errors are logged,
// never surfaced; the transcript stays ahead of the database.
func (s *Session) persistAsync(fn func(ctx context.Context) error) {
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Msg("background persistence failed")
		}
	}()
}
