// Package events delivers auth-state changes to subscribers one at a time,
// in publication order, from a single goroutine owned by the hub.
package events

import (
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type subscriber struct {
	cb     func(models.AuthEvent)
	active bool
}

type delivery struct {
	evt models.AuthEvent
	// to is nil for broadcasts.
	to *subscriber
}

// Hub fans events out to subscribers. Publish never blocks on callbacks.
type Hub struct {
	mu     sync.Mutex
	subs   []*subscriber
	queue  []delivery
	signal chan struct{}
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewHub() *Hub {
	h := &Hub{signal: make(chan struct{}, 1), done: make(chan struct{})}
	h.wg.Add(1)
	go h.run()
	return h
}

// Subscription cancels one callback.
type Subscription struct {
	h *Hub
	s *subscriber
}

// Unsubscribe stops deliveries to the callback. Events already being
// delivered may still arrive. Calling it twice is safe.
func (s *Subscription) Unsubscribe() {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	s.s.active = false
	for i, sub := range s.h.subs {
		if sub == s.s {
			s.h.subs = append(s.h.subs[:i], s.h.subs[i+1:]...)
			break
		}
	}
}

// Subscribe registers cb. When initial is non-nil it is queued for cb alone,
// after everything already published.
func (h *Hub) Subscribe(cb func(models.AuthEvent), initial *models.AuthEvent) *Subscription {
	s := &subscriber{cb: cb, active: true}

	h.mu.Lock()
	h.subs = append(h.subs, s)
	if initial != nil && !h.closed {
		h.queue = append(h.queue, delivery{evt: *initial, to: s})
	}
	h.mu.Unlock()

	h.wake()
	return &Subscription{h: h, s: s}
}

// Publish queues evt for every current subscriber.
func (h *Hub) Publish(evt models.AuthEvent) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.queue = append(h.queue, delivery{evt: evt})
	h.mu.Unlock()

	h.wake()
}

func (h *Hub) wake() {
	select {
	case h.signal <- struct{}{}:
	default:
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.signal:
		case <-h.done:
			return
		}
		for {
			h.mu.Lock()
			if len(h.queue) == 0 || h.closed {
				h.mu.Unlock()
				break
			}
			d := h.queue[0]
			h.queue = h.queue[1:]
			var targets []*subscriber
			if d.to != nil {
				targets = []*subscriber{d.to}
			} else {
				targets = append(targets, h.subs...)
			}
			h.mu.Unlock()

			for _, s := range targets {
				h.mu.Lock()
				active := s.active
				h.mu.Unlock()
				if active {
					s.cb(d.evt)
				}
			}
		}
	}
}

// Close stops delivery and waits for the running callback to return.
// Queued events are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.queue = nil
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()
}
