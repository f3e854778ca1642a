package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

func TestClient_Complete(t *testing.T) {
	var got completionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"**Recursion** is..."}}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", HTTP: srv.Client()}
	reply, err := c.Complete(context.Background(), []models.ChatMessage{
		{Role: "assistant", Content: WelcomeMessage},
		{Role: "user", Content: "what is recursion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "**Recursion** is...", reply)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 800, got.MaxTokens)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "what is recursion", got.Messages[2].Content)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer bad":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
		case "Bearer empty":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream down`))
		}
	}))
	defer srv.Close()

	_, err := (&Client{BaseURL: srv.URL}).Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = (&Client{BaseURL: srv.URL, APIKey: "bad"}).Complete(context.Background(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", err.Error())

	_, err = (&Client{BaseURL: srv.URL, APIKey: "other"}).Complete(context.Background(), nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)

	reply, err := (&Client{BaseURL: srv.URL, APIKey: "empty"}).Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, noReply, reply)
}

func TestHistory_WelcomeAppendClear(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryRepository()
	h := NewHistory(store, nil)
	h.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	msgs := h.Messages(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)

	msgs, err := h.Append(ctx, models.ChatMessage{Role: "user", Content: "hi"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	again := NewHistory(store, nil).Messages(ctx)
	require.Len(t, again, 2)
	assert.Equal(t, "hi", again[1].Content)
	assert.True(t, again[1].Timestamp.Equal(h.now()))

	cleared, err := h.Clear(ctx)
	require.NoError(t, err)
	require.Len(t, cleared, 1)
	assert.Equal(t, ClearedMessage, cleared[0].Content)
	raw, _ := store.Get(ctx, common.ChatHistoryKey)
	assert.Nil(t, raw)
}

func TestHistory_CorruptFallsBackToWelcome(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryRepository()
	require.NoError(t, store.Set(ctx, common.ChatHistoryKey, []byte(`{not json`)))

	msgs := NewHistory(store, nil).Messages(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)
}

type stubCompleter struct {
	reply string
	err   error
	seen  []models.ChatMessage
}

func (s *stubCompleter) Complete(_ context.Context, h []models.ChatMessage) (string, error) {
	s.seen = h
	return s.reply, s.err
}

func TestAssistant_Ask(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(localstore.NewMemoryRepository(), nil)
	c := &stubCompleter{reply: "42"}
	a := NewAssistant(c, h, nil)

	_, err := a.Ask(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	reply, err := a.Ask(ctx, " meaning of life? ")
	require.NoError(t, err)
	assert.Equal(t, "42", reply)
	require.Len(t, c.seen, 2)
	assert.Equal(t, "meaning of life?", c.seen[1].Content)

	msgs := h.Messages(ctx)
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "42", msgs[2].Content)
}

func TestAssistant_AskFailureRecordsError(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(localstore.NewMemoryRepository(), nil)
	boom := errors.New("rate limited")
	a := NewAssistant(&stubCompleter{err: boom}, h, nil)

	_, err := a.Ask(ctx, "hello")
	require.ErrorIs(t, err, boom)

	msgs := a.History().Messages(ctx)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Error: rate limited", msgs[2].Content)
}
