package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/domain/guidance"
	"gracechat-server/internal/domain/session"
)

// memoryConversationRepo is an in-memory conversation.Repository with
// optional Func overrides for failure injection.
type memoryConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*conversation.Conversation
	renameCalls   int
	nextID        uint

	CreateFunc         func(ctx context.Context, conv *conversation.Conversation) error
	FindByPublicIDFunc func(ctx context.Context, publicID string) (*conversation.Conversation, error)
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{conversations: make(map[string]*conversation.Conversation)}
}

func (r *memoryConversationRepo) Create(ctx context.Context, conv *conversation.Conversation) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, conv)
	}
	return r.create(conv)
}

func (r *memoryConversationRepo) create(conv *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	conv.ID = r.nextID
	stored := *conv
	r.conversations[conv.PublicID] = &stored
	return nil
}

func (r *memoryConversationRepo) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	if r.FindByPublicIDFunc != nil {
		return r.FindByPublicIDFunc(ctx, publicID)
	}
	return r.find(publicID)
}

func (r *memoryConversationRepo) find(publicID string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[publicID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	copied := *conv
	return &copied, nil
}

func (r *memoryConversationRepo) ListByUserID(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Conversation
	for _, conv := range r.conversations {
		if conv.UserID == userID {
			copied := *conv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryConversationRepo) RenameIfPlaceholder(ctx context.Context, publicID, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renameCalls++
	conv, ok := r.conversations[publicID]
	if !ok {
		return errors.New("conversation not found")
	}
	if conv.Summary == conversation.SummaryPlaceholder {
		conv.Summary = summary
	}
	return nil
}

func (r *memoryConversationRepo) Delete(ctx context.Context, publicID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conversations, publicID)
	return nil
}

func (r *memoryConversationRepo) summary(publicID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.conversations[publicID]; ok {
		return conv.Summary
	}
	return ""
}

// memoryMessageRepo is an in-memory conversation.MessageRepository.
type memoryMessageRepo struct {
	mu     sync.Mutex
	rows   []conversation.Message
	nextID uint

	InsertFunc func(ctx context.Context, msg *conversation.Message) error
}

func (r *memoryMessageRepo) Insert(ctx context.Context, msg *conversation.Message) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, msg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.rows = append(r.rows, *msg)
	return nil
}

func (r *memoryMessageRepo) BulkInsert(ctx context.Context, messages []conversation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range messages {
		r.nextID++
		msg.ID = r.nextID
		r.rows = append(r.rows, msg)
	}
	return nil
}

func (r *memoryMessageRepo) ListByConversationID(ctx context.Context, conversationID uint) ([]conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []conversation.Message
	for _, msg := range r.rows {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	// Persisted order is creation time ascending.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *memoryMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// mockProvider implements guidance.Provider via a Func field.
type mockProvider struct {
	GuidanceFunc func(ctx context.Context, question string) (*guidance.Response, error)
	calls        int
	mu           sync.Mutex
}

func (p *mockProvider) Guidance(ctx context.Context, question string) (*guidance.Response, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.GuidanceFunc != nil {
		return p.GuidanceFunc(ctx, question)
	}
	return &guidance.Response{Interpretations: []guidance.Interpretation{{View: "canned view"}}}, nil
}

func newTestSession(provider guidance.Provider) (*session.Session, *memoryConversationRepo, *memoryMessageRepo) {
	convRepo := newMemoryConversationRepo()
	msgRepo := &memoryMessageRepo{}
	sess := session.New("user-1", convRepo, msgRepo, provider, zerolog.Nop())
	return sess, convRepo, msgRepo
}

func psalmResponse() *guidance.Response {
	return &guidance.Response{
		Interpretations: []guidance.Interpretation{
			{
				View: "This reflects God's provision...",
				Scriptures: []guidance.Scripture{
					{Reference: "Psalm 23:1", Text: "The Lord is my shepherd...", Translation: "NIV"},
				},
			},
		},
	}
}

func TestSendUserMessage_EmptyInputIsNoOp(t *testing.T) {
	sess, _, msgRepo := newTestSession(&mockProvider{})

	for _, text := range []string{"", "   ", "\n\t "} {
		sess.SendUserMessage(context.Background(), text)
	}
	sess.Flush()

	if got := len(sess.Messages()); got != 0 {
		t.Fatalf("expected empty transcript, got %d messages", got)
	}
	if sess.Loading() {
		t.Fatal("loading flag must stay unset")
	}
	if msgRepo.count() != 0 {
		t.Fatalf("expected no persisted messages, got %d", msgRepo.count())
	}
}

func TestSendUserMessage_WithScriptureProducesThreeMessages(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return psalmResponse(), nil
		},
	}
	sess, _, msgRepo := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "What does Psalm 23 mean?")
	sess.Flush()

	msgs := sess.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != conversation.SenderUser || msgs[0].Text != "What does Psalm 23 mean?" {
		t.Fatalf("unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Sender != conversation.SenderBot || msgs[1].Text != "This reflects God's provision..." {
		t.Fatalf("unexpected explanation message: %+v", msgs[1])
	}
	verse := msgs[2]
	if verse.Sender != conversation.SenderBot {
		t.Fatalf("verse message sender = %s", verse.Sender)
	}
	if !strings.Contains(verse.Text, "The Lord is my shepherd...") ||
		!strings.Contains(verse.Text, "Psalm 23:1") ||
		!strings.Contains(verse.Text, "NIV") {
		t.Fatalf("verse message badly formatted: %q", verse.Text)
	}
	if verse.Metadata == nil || !verse.Metadata.IsVerse || verse.Metadata.Reference != "Psalm 23:1" || verse.Metadata.Translation != "NIV" {
		t.Fatalf("verse metadata wrong: %+v", verse.Metadata)
	}
	if !verse.CreatedAt.After(msgs[1].CreatedAt) {
		t.Fatal("verse timestamp must sort after the explanation")
	}
	if sess.Loading() {
		t.Fatal("loading flag must be cleared on success")
	}
	if msgRepo.count() != 3 {
		t.Fatalf("expected 3 persisted messages, got %d", msgRepo.count())
	}
}

func TestSendUserMessage_WithoutScriptureProducesTwoMessages(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return &guidance.Response{Interpretations: []guidance.Interpretation{{View: "Keep the faith."}}}, nil
		},
	}
	sess, _, _ := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "Any word for today?")
	sess.Flush()

	msgs := sess.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Metadata != nil {
		t.Fatalf("explanation must carry no metadata, got %+v", msgs[1].Metadata)
	}
}

func TestSendUserMessage_ProviderFailureYieldsFallback(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return nil, guidance.ErrUpstreamCall
		},
	}
	sess, _, _ := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "Why do we suffer?")
	sess.Flush()

	msgs := sess.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user message + fallback, got %d", len(msgs))
	}
	if msgs[1].Text != session.FallbackConnectionMessage || msgs[1].Metadata != nil {
		t.Fatalf("unexpected fallback message: %+v", msgs[1])
	}
	if sess.Loading() {
		t.Fatal("loading flag must be cleared on failure")
	}
}

func TestSendUserMessage_QuotaFailureYieldsDistinctFallback(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return nil, guidance.ErrQuotaExceeded
		},
	}
	sess, _, _ := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "Another question")
	sess.Flush()

	msgs := sess.Messages()
	if len(msgs) != 2 || msgs[1].Text != session.FallbackQuotaMessage {
		t.Fatalf("expected quota fallback, got %+v", msgs)
	}
}

func TestSendUserMessage_RenamesSummaryExactlyOnce(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return psalmResponse(), nil
		},
	}
	sess, convRepo, _ := newTestSession(provider)

	question := "What does the parable of the sower teach about perseverance?"
	sess.SendUserMessage(context.Background(), question)
	sess.Flush()

	publicID, ok := sess.ConversationID()
	if !ok {
		t.Fatal("conversation id must be set after first send")
	}
	summary := convRepo.summary(publicID)
	if summary == conversation.SummaryPlaceholder {
		t.Fatal("summary was not renamed")
	}
	if len([]rune(summary)) > 33 {
		t.Fatalf("summary too long: %q", summary)
	}
	if !strings.HasPrefix(question, strings.TrimSuffix(summary, "...")) {
		t.Fatalf("summary %q is not a prefix of the question", summary)
	}

	sess.SendUserMessage(context.Background(), "A completely different follow-up question")
	sess.Flush()
	if got := convRepo.summary(publicID); got != summary {
		t.Fatalf("summary changed on second send: %q -> %q", summary, got)
	}
}

func TestLoadConversation_ReplicatesPersistedMessages(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return psalmResponse(), nil
		},
	}
	sess, _, _ := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "What does Psalm 23 mean?")
	sess.Flush()
	sent := sess.Messages()
	publicID, _ := sess.ConversationID()

	sess.ClearMessages()
	if err := sess.LoadConversation(context.Background(), publicID); err != nil {
		t.Fatalf("load conversation: %v", err)
	}

	loaded := sess.Messages()
	if len(loaded) != len(sent) {
		t.Fatalf("expected %d messages, got %d", len(sent), len(loaded))
	}
	for i := range sent {
		if loaded[i].Text != sent[i].Text || loaded[i].Sender != sent[i].Sender {
			t.Fatalf("message %d differs: sent %+v, loaded %+v", i, sent[i], loaded[i])
		}
	}
	if sess.Loading() {
		t.Fatal("loading flag must be cleared after load")
	}
}

func TestClearMessages_ResetsState(t *testing.T) {
	sess, _, _ := newTestSession(&mockProvider{})

	sess.SendUserMessage(context.Background(), "hello")
	sess.Flush()
	sess.ClearMessages()

	if len(sess.Messages()) != 0 {
		t.Fatal("message list must be empty after clear")
	}
	if _, ok := sess.ConversationID(); ok {
		t.Fatal("conversation id must be unset after clear")
	}
}

func TestDeleteConversation_ActiveClearsSessionState(t *testing.T) {
	sess, convRepo, _ := newTestSession(&mockProvider{})

	sess.SendUserMessage(context.Background(), "first question")
	sess.Flush()
	publicID, _ := sess.ConversationID()

	if err := sess.DeleteConversation(context.Background(), publicID); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if len(sess.Messages()) != 0 {
		t.Fatal("deleting the active conversation must clear the transcript")
	}
	if _, ok := sess.ConversationID(); ok {
		t.Fatal("conversation id must be unset after delete")
	}
	convs, err := convRepo.ListByUserID(context.Background(), "user-1")
	if err != nil || len(convs) != 0 {
		t.Fatalf("conversation row must be gone, got %v (%v)", convs, err)
	}
}

func TestSendUserMessage_StaleResponseDiscardedAfterSwitch(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			<-release
			return psalmResponse(), nil
		},
	}
	sess, _, _ := newTestSession(provider)

	done := make(chan struct{})
	go func() {
		sess.SendUserMessage(context.Background(), "slow question")
		close(done)
	}()

	// Wait for the optimistic user append, then switch away mid-flight.
	deadline := time.After(2 * time.Second)
	for len(sess.Messages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("user message never appended")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !sess.Loading() {
		t.Fatal("loading flag must be set while the round trip is outstanding")
	}
	sess.ClearMessages()
	close(release)
	<-done
	sess.Flush()

	if got := len(sess.Messages()); got != 0 {
		t.Fatalf("stale bot response must be discarded, transcript has %d messages", got)
	}
	if sess.Loading() {
		t.Fatal("loading flag of the fresh state must not be touched")
	}
}

func TestLoadConversation_StaleLoadDiscardedAfterSwitch(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return psalmResponse(), nil
		},
	}
	sess, convRepo, _ := newTestSession(provider)

	sess.SendUserMessage(context.Background(), "first question")
	sess.Flush()
	slowID, _ := sess.ConversationID()

	sess.ClearMessages()
	sess.SendUserMessage(context.Background(), "second question")
	sess.Flush()
	freshID, _ := sess.ConversationID()

	started := make(chan struct{})
	release := make(chan struct{})
	convRepo.FindByPublicIDFunc = func(ctx context.Context, publicID string) (*conversation.Conversation, error) {
		if publicID == slowID {
			close(started)
			<-release
		}
		return convRepo.find(publicID)
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.LoadConversation(context.Background(), slowID)
	}()
	<-started

	// Switch to the other conversation while the first load hangs.
	if err := sess.LoadConversation(context.Background(), freshID); err != nil {
		t.Fatalf("load fresh conversation: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale load must not error: %v", err)
	}

	if got, _ := sess.ConversationID(); got != freshID {
		t.Fatalf("late-arriving load replaced the newer state: active = %s, want %s", got, freshID)
	}
	msgs := sess.Messages()
	if len(msgs) == 0 || msgs[0].Text != "second question" {
		t.Fatalf("transcript must belong to the fresh conversation, got %+v", msgs)
	}
	if sess.Loading() {
		t.Fatal("loading flag of the fresh state must not be touched")
	}
}

func TestSendUserMessage_SwitchDuringCreateDropsOrphanRow(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	convRepo := newMemoryConversationRepo()
	convRepo.CreateFunc = func(ctx context.Context, conv *conversation.Conversation) error {
		close(entered)
		<-release
		return convRepo.create(conv)
	}
	msgRepo := &memoryMessageRepo{}
	sess := session.New("user-1", convRepo, msgRepo, &mockProvider{}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		sess.SendUserMessage(context.Background(), "a question nobody waits for")
		close(done)
	}()
	<-entered
	sess.ClearMessages()
	close(release)
	<-done
	sess.Flush()

	if _, ok := sess.ConversationID(); ok {
		t.Fatal("discarded creation must not attach to the session")
	}
	convs, err := convRepo.ListByUserID(context.Background(), "user-1")
	if err != nil || len(convs) != 0 {
		t.Fatalf("abandoned conversation row must be removed, got %v (%v)", convs, err)
	}
	if msgRepo.count() != 0 {
		t.Fatalf("no messages should persist for a discarded conversation, got %d", msgRepo.count())
	}
}

func TestSendUserMessage_PersistenceFailureDoesNotSurface(t *testing.T) {
	provider := &mockProvider{
		GuidanceFunc: func(ctx context.Context, question string) (*guidance.Response, error) {
			return psalmResponse(), nil
		},
	}
	convRepo := newMemoryConversationRepo()
	convRepo.CreateFunc = func(ctx context.Context, conv *conversation.Conversation) error {
		return errors.New("database unavailable")
	}
	msgRepo := &memoryMessageRepo{}
	sess := session.New("user-1", convRepo, msgRepo, provider, zerolog.Nop())

	sess.SendUserMessage(context.Background(), "What does Psalm 23 mean?")
	sess.Flush()

	// The chat still works: transcript grows, nothing is persisted.
	if got := len(sess.Messages()); got != 3 {
		t.Fatalf("expected 3 messages despite persistence failure, got %d", got)
	}
	if _, ok := sess.ConversationID(); ok {
		t.Fatal("conversation id must stay unset when creation failed")
	}
	if msgRepo.count() != 0 {
		t.Fatalf("no messages should persist without a conversation, got %d", msgRepo.count())
	}
}
