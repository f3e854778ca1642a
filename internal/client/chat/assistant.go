package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

var ErrEmptyQuestion = errors.New("empty question")

type Completer interface {
	Complete(ctx context.Context, history []models.ChatMessage) (string, error)
}

// Assistant runs one question-answer turn against the history.
type Assistant struct {
	completer Completer
	history   *History
	log       logging.Logger
}

func NewAssistant(c Completer, h *History, log logging.Logger) *Assistant {
	if log == nil {
		log = logging.Nop()
	}
	return &Assistant{completer: c, history: h, log: log.With("component", "assistant")}
}

// Ask records the question and the reply. A failed completion is recorded
// as an "Error: ..." assistant message and returned.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	msgs, err := a.history.Append(ctx, models.ChatMessage{Role: "user", Content: question})
	if err != nil {
		a.log.Warn(ctx, "question not saved", "error", err)
	}

	reply, err := a.completer.Complete(ctx, msgs)
	if err != nil {
		a.log.Error(ctx, "error calling chat API", "error", err)
		if _, herr := a.history.Append(ctx, models.ChatMessage{Role: "assistant", Content: "Error: " + err.Error()}); herr != nil {
			a.log.Warn(ctx, "error reply not saved", "error", herr)
		}
		return "", err
	}

	if _, err := a.history.Append(ctx, models.ChatMessage{Role: "assistant", Content: reply}); err != nil {
		a.log.Warn(ctx, "reply not saved", "error", err)
	}
	return reply, nil
}

func (a *Assistant) History() *History { return a.history }
