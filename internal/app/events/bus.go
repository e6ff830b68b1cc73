/*
Package events is the notification channel between the network layer and the game UI.

The session store and the gateway publish one of four payload-less events; the UI
subscribes and re-reads the session when notified. Delivery is synchronous and in
registration order on the publisher's goroutine, which is the owner's main loop when
the asynchronous gateway is used.
*/
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"mmoclient/internal/pkg/logx"
)

// Event names something that happened to the session.
type Event int

const (
	// LoginSucceeded fires after credentials were accepted and the session holds a token.
	LoginSucceeded Event = iota + 1

	// LoginFailed fires when a login attempt ends without a token.
	LoginFailed

	// CharacterCreated fires after the backend confirmed a new character.
	CharacterCreated

	// CharacterListReceived fires after the roster was replaced.
	CharacterListReceived
)

// String returns the event name used in logs.
func (e Event) String() string {
	switch e {
	case LoginSucceeded:
		return "LoginSucceeded"
	case LoginFailed:
		return "LoginFailed"
	case CharacterCreated:
		return "CharacterCreated"
	case CharacterListReceived:
		return "CharacterListReceived"
	default:
		return "Unknown"
	}
}

// Publisher is the notification capability consumed by the session store and gateway.
type Publisher interface {
	Publish(Event)
}

// Handler receives an event.
type Handler func(Event)

type subscription struct {
	id      uint64
	event   Event // zero means every event
	handler Handler
}

// Bus is an ordered subscriber list.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	logger zerolog.Logger
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{logger: logx.Component("events")}
}

// Subscribe registers h for a single event and returns a function removing it.
func (b *Bus) Subscribe(ev Event, h Handler) (unsubscribe func()) {
	return b.add(ev, h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.add(0, h)
}

func (b *Bus) add(ev Event, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, event: ev, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber registered before the call, in
// registration order. A panicking handler is logged and does not stop delivery to
// the others. Handlers may subscribe, unsubscribe or publish re-entrantly.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	b.logger.Debug().Stringer("event", ev).Int("subscribers", len(snapshot)).Msg("Publishing event")

	for _, s := range snapshot {
		if s.event != 0 && s.event != ev {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Stringer("event", ev).
				Uint64("subscription", s.id).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()

	s.handler(ev)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
