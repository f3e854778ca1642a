package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/chat"
)

// Chat asks the study assistant a question. Without a question it prints
// the conversation so far.
func (a *App) Chat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, m := range a.assistant.History().Messages(ctx) {
			printlnFn(fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("15:04"), m.Role, m.Content))
		}
		return nil
	}

	reply, err := a.assistant.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			printlnFn("Usage: chat <question>")
		case errors.Is(err, chat.ErrMissingAPIKey):
			printlnFn("The assistant is not configured: set NOTEKEEPER_CHAT_API_KEY.")
		default:
			printlnFn("Assistant error:", err.Error())
		}
		return err
	}
	printlnFn(reply)
	return nil
}

func (a *App) ClearChat(ctx context.Context) error {
	msgs, err := a.assistant.History().Clear(ctx)
	if err != nil {
		printlnFn("Could not clear the conversation:", err.Error())
		return err
	}
	for _, m := range msgs {
		printlnFn(m.Content)
	}
	return nil
}
