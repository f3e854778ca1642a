package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type recorder struct {
	mu     sync.Mutex
	events []models.AuthEventType
}

func (r *recorder) cb(e models.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
}

func (r *recorder) got() []models.AuthEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuthEventType(nil), r.events...)
}

func TestHub_DeliversInOrder(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var r recorder
	initial := models.AuthEvent{Type: models.EventInitialSession}
	h.Subscribe(r.cb, &initial)

	h.Publish(models.AuthEvent{Type: models.EventSignedIn})
	h.Publish(models.AuthEvent{Type: models.EventTokenRefreshed})
	h.Publish(models.AuthEvent{Type: models.EventSignedOut})

	want := []models.AuthEventType{
		models.EventInitialSession,
		models.EventSignedIn,
		models.EventTokenRefreshed,
		models.EventSignedOut,
	}
	require.Eventually(t, func() bool { return len(r.got()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, r.got())
}

func TestHub_InitialEventGoesToNewSubscriberOnly(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var first, second recorder
	h.Subscribe(first.cb, nil)
	initial := models.AuthEvent{Type: models.EventInitialSession}
	h.Subscribe(second.cb, &initial)
	h.Publish(models.AuthEvent{Type: models.EventSignedIn})

	require.Eventually(t, func() bool { return len(first.got()) == 1 && len(second.got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.AuthEventType{models.EventSignedIn}, first.got())
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var r recorder
	sub := h.Subscribe(r.cb, nil)
	h.Publish(models.AuthEvent{Type: models.EventSignedIn})
	require.Eventually(t, func() bool { return len(r.got()) == 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()
	h.Publish(models.AuthEvent{Type: models.EventSignedOut})

	var probe recorder
	h.Subscribe(probe.cb, &models.AuthEvent{Type: models.EventInitialSession})
	require.Eventually(t, func() bool { return len(probe.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, r.got(), 1)
}

func TestHub_CallbackMayPublish(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var r recorder
	h.Subscribe(func(e models.AuthEvent) {
		r.cb(e)
		if e.Type == models.EventSignedIn {
			h.Publish(models.AuthEvent{Type: models.EventUserUpdated})
		}
	}, nil)
	h.Publish(models.AuthEvent{Type: models.EventSignedIn})

	require.Eventually(t, func() bool { return len(r.got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []models.AuthEventType{models.EventSignedIn, models.EventUserUpdated}, r.got())
}

func TestHub_CloseIsIdempotentAndStopsDelivery(t *testing.T) {
	h := NewHub()
	var r recorder
	h.Subscribe(r.cb, nil)
	h.Close()
	h.Close()
	h.Publish(models.AuthEvent{Type: models.EventSignedIn})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.got())
}
