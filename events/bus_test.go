package events_test

import (
	"testing"

	"github.com/jrsteele09/go-spendora-client/events"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	bus := events.NewBus()

	var got []string
	bus.Subscribe(func(s events.Signal) { got = append(got, "first:"+string(s)) })
	bus.Subscribe(func(s events.Signal) { got = append(got, "second:"+string(s)) })

	bus.Publish(events.AuthError)

	require.Equal(t, []string{"first:auth-error", "second:auth-error"}, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := events.NewBus()

	count := 0
	unsubscribe := bus.Subscribe(func(events.Signal) { count++ })
	require.Equal(t, 1, bus.Subscribers())

	bus.Publish(events.TokenRefreshFailed)
	unsubscribe()
	unsubscribe()
	bus.Publish(events.TokenRefreshFailed)

	require.Equal(t, 1, count)
	require.Equal(t, 0, bus.Subscribers())
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := events.NewBus()

	var unsubscribe func()
	calls := 0
	unsubscribe = bus.Subscribe(func(events.Signal) {
		calls++
		unsubscribe()
	})

	bus.Publish(events.AuthError)
	bus.Publish(events.AuthError)
	require.Equal(t, 1, calls)
}

func TestObserverMethods(t *testing.T) {
	bus := events.NewBus()

	var got []events.Signal
	bus.Subscribe(func(s events.Signal) { got = append(got, s) })

	bus.OnAuthError()
	bus.OnRefreshFailed()

	require.Equal(t, []events.Signal{events.AuthError, events.TokenRefreshFailed}, got)
}
