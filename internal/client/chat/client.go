// Package chat is the AI study assistant: a chat-completions client and a
// conversation history kept in the local store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	temperature = 0.7
	maxTokens   = 800

	noReply = "Sorry, I could not generate a response."
)

const systemPrompt = `You are a helpful assistant that provides well-structured, organized responses.
Follow these guidelines:
1. Use markdown formatting to structure your responses (headings, lists, bold, etc.)
2. Break down complex answers into sections with clear headings when appropriate
3. Use bullet points or numbered lists for multiple items or steps
4. Bold important terms or concepts using **bold text**
5. Keep paragraphs concise and focused on one idea
6. Summarize key points at the end of longer responses`

var ErrMissingAPIKey = errors.New("missing chat API key")

// APIError is a rejected completion request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

// Complete sends the conversation, preceded by the system prompt, and
// returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, history []models.ChatMessage) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	req := completionRequest{
		Model:       model,
		Messages:    make([]message, 0, len(history)+1),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	req.Messages = append(req.Messages, message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.APIKey)

	var resp completionResponse
	err := netx.PostJSON(ctx, c.HTTP, strings.TrimRight(base, "/")+"/chat/completions", header, req, &resp)
	if err != nil {
		var httpErr *netx.HTTPError
		if errors.As(err, &httpErr) {
			msg := "Failed to communicate with the chat API"
			var body errorResponse
			if json.Unmarshal(httpErr.Body, &body) == nil && body.Error.Message != "" {
				msg = body.Error.Message
			}
			return "", &APIError{StatusCode: httpErr.StatusCode, Message: msg}
		}
		return "", fmt.Errorf("chat request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return noReply, nil
	}
	return resp.Choices[0].Message.Content, nil
}
