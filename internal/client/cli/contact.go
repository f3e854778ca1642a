package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/contact"
)

// Contact sends a message to the maintainers on behalf of the signed-in
// user.
func (a *App) Contact(ctx context.Context) error {
	snap, err := a.requireAuth(ctx)
	if err != nil {
		return err
	}
	if wait := a.contact.Wait(ctx); wait > 0 {
		printlnFn(fmt.Sprintf("Please wait %s before sending another message.", wait.Round(time.Second)))
		return contact.ErrRateLimited
	}

	subject, err := a.prompt("Subject")
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Message", a.out)
	if err != nil {
		return err
	}

	if err := a.contact.Send(ctx, subject, body, snap.User.Name); err != nil {
		switch {
		case errors.Is(err, contact.ErrMissingFields), errors.Is(err, contact.ErrRateLimited):
			printlnFn(err.Error())
		default:
			printlnFn("Failed to send message. Please try again later.")
		}
		return err
	}
	printlnFn("Message sent. Thank you!")
	return nil
}
