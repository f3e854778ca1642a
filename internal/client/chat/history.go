package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	WelcomeMessage = "Hello! I'm your AI assistant. How can I help you today?"
	ClearedMessage = "Chat history cleared. How can I help you today?"
)

// History is the conversation persisted under the chat history key. An
// empty or unreadable history starts with a welcome message.
type History struct {
	store localstore.Repository
	log   logging.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewHistory(store localstore.Repository, log logging.Logger) *History {
	if log == nil {
		log = logging.Nop()
	}
	return &History{store: store, log: log.With("component", "chat-history"), now: time.Now}
}

func (h *History) greeting(text string) []models.ChatMessage {
	return []models.ChatMessage{{Role: "assistant", Content: text, Timestamp: h.now()}}
}

func (h *History) load(ctx context.Context) []models.ChatMessage {
	raw, err := h.store.Get(ctx, common.ChatHistoryKey)
	if err != nil {
		h.log.Warn(ctx, "chat history unavailable", "error", err)
		return h.greeting(WelcomeMessage)
	}
	if len(raw) == 0 {
		return h.greeting(WelcomeMessage)
	}
	var msgs []models.ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil || len(msgs) == 0 {
		h.log.Warn(ctx, "failed to parse chat history", "error", err)
		return h.greeting(WelcomeMessage)
	}
	return msgs
}

// Messages returns the conversation so far.
func (h *History) Messages(ctx context.Context) []models.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Append stamps msg, stores it and returns the whole conversation.
func (h *History) Append(ctx context.Context, msg models.ChatMessage) ([]models.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.load(ctx), models.ChatMessage{Role: msg.Role, Content: msg.Content, Timestamp: h.now()})
	raw, err := json.Marshal(msgs)
	if err != nil {
		return msgs, fmt.Errorf("encode chat history: %w", err)
	}
	if err := h.store.Set(ctx, common.ChatHistoryKey, raw); err != nil {
		return msgs, fmt.Errorf("save chat history: %w", err)
	}
	return msgs, nil
}

// Clear forgets the stored conversation and returns the fresh one.
func (h *History) Clear(ctx context.Context) ([]models.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Delete(ctx, common.ChatHistoryKey); err != nil {
		return nil, fmt.Errorf("clear chat history: %w", err)
	}
	return h.greeting(ClearedMessage), nil
}
