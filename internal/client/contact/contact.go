// Package contact sends "contact developer" messages, at most one per
// cooldown window.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/localstore"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const DefaultCooldown = 5 * time.Minute

var (
	ErrMissingFields = errors.New("please fill in all required fields")
	ErrRateLimited   = errors.New("please wait before sending another message")
)

type Message struct {
	Subject  string
	Body     string
	FromName string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Service struct {
	sender   Sender
	store    localstore.Repository
	cooldown time.Duration
	now      func() time.Time
	log      logging.Logger
}

func NewService(sender Sender, store localstore.Repository, cooldown time.Duration, log logging.Logger) *Service {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		sender:   sender,
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
		log:      log.With("component", "contact"),
	}
}

// lastSent reads the previous send time. An unreadable value does not
// block sending.
func (s *Service) lastSent(ctx context.Context) (time.Time, bool) {
	raw, err := s.store.Get(ctx, common.LastEmailSentKey)
	if err != nil || len(raw) == 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		s.log.Warn(ctx, "ignoring malformed last sent time", "value", string(raw))
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Wait returns how long until the next message may be sent.
func (s *Service) Wait(ctx context.Context) time.Duration {
	last, ok := s.lastSent(ctx)
	if !ok {
		return 0
	}
	left := s.cooldown - s.now().Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// Send delivers the message and starts a new cooldown window. fromName
// falls back to "Anonymous".
func (s *Service) Send(ctx context.Context, subject, body, fromName string) error {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return ErrMissingFields
	}
	if last, ok := s.lastSent(ctx); ok && s.now().Sub(last) <= s.cooldown {
		return ErrRateLimited
	}
	if strings.TrimSpace(fromName) == "" {
		fromName = "Anonymous"
	}

	if err := s.sender.Send(ctx, Message{Subject: subject, Body: body, FromName: fromName}); err != nil {
		s.log.Error(ctx, "error sending email", "error", err)
		return fmt.Errorf("send message: %w", err)
	}

	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.store.Set(ctx, common.LastEmailSentKey, []byte(stamp)); err != nil {
		s.log.Warn(ctx, "last sent time not saved", "error", err)
	}
	return nil
}

// ConsoleSender logs messages instead of mailing them.
type ConsoleSender struct {
	Log logging.Logger
}

func (c ConsoleSender) Send(ctx context.Context, msg Message) error {
	log := c.Log
	if log == nil {
		log = logging.Nop()
	}
	log.Info(ctx, "contact message", "subject", msg.Subject, "from", msg.FromName, "message", msg.Body)
	return nil
}
