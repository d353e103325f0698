// Package events carries authentication failures detected inside the HTTP layer
// to whoever owns session state, without either side holding a reference to the other.
package events

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Signal names an authentication event. Signals carry no payload.
type Signal string

const (
	// AuthError is published when a request is rejected and no refresh token is available.
	AuthError Signal = "auth-error"
	// TokenRefreshFailed is published when exchanging the refresh token fails.
	TokenRefreshFailed Signal = "token-refresh-failed"
)

// Handler receives published signals.
type Handler func(Signal)

// Bus is a publish/subscribe channel for auth signals. Delivery is synchronous:
// Publish returns once every handler subscribed at the time of the call has run.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[uint64]Handler),
	}
}

// Subscribe registers h and returns a function that removes it. The returned
// function may be called more than once.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers s to every current subscriber in subscription order.
// Handlers run without the bus lock held, so they may subscribe or unsubscribe.
func (b *Bus) Publish(s Signal) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	slices.Sort(ids)

	log.Debug().Str("signal", string(s)).Int("subscribers", len(ids)).Msg("publishing auth signal")
	for _, id := range ids {
		b.mu.RLock()
		h, ok := b.handlers[id]
		b.mu.RUnlock()
		if ok {
			h(s)
		}
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// OnAuthError publishes AuthError. Together with OnRefreshFailed it lets a Bus
// be handed to the HTTP client as its auth observer.
func (b *Bus) OnAuthError() {
	b.Publish(AuthError)
}

// OnRefreshFailed publishes TokenRefreshFailed.
func (b *Bus) OnRefreshFailed() {
	b.Publish(TokenRefreshFailed)
}
