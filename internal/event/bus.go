// Package event provides the workbench's in-process event bus.
// Delivery is synchronous: Publish calls every matching handler on the
// publishing goroutine before returning, which keeps handlers (editor
// listeners, extension scripts) on the single thread of control the
// rest of the system assumes.
package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Topic     Topic
	SubjectID string
	Data      map[string]any
	Time      time.Time
}

// Handler receives published events.
type Handler func(Event)

// Stats reports bus activity counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	HandlerPanics uint64
	Subscribers   int
}

type subscription struct {
	id      string
	topic   Topic
	handler Handler
	once    bool
}

// Bus routes events to topic subscribers. Subscribe and Unsubscribe
// are safe to call from handlers: the subscriber list is copied before
// dispatch, so changes take effect on the next publish.
type Bus struct {
	mu     sync.Mutex
	subs   map[Topic][]*subscription
	byID   map[string]*subscription
	closed bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic][]*subscription),
		byID: make(map[string]*subscription),
	}
}

// Subscribe registers a handler for a topic and returns the
// subscription ID used to unsubscribe.
func (b *Bus) Subscribe(topic Topic, h Handler) (string, error) {
	return b.subscribe(topic, h, false)
}

// SubscribeOnce registers a handler that receives at most one event.
// The subscription is claimed before delivery, so a handler that
// republishes its topic is not invoked again.
func (b *Bus) SubscribeOnce(topic Topic, h Handler) (string, error) {
	return b.subscribe(topic, h, true)
}

func (b *Bus) subscribe(topic Topic, h Handler, once bool) (string, error) {
	if h == nil {
		return "", ErrNilHandler
	}
	if topic == "" {
		return "", ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrBusClosed
	}

	sub := &subscription{
		id:      uuid.New().String(),
		topic:   topic,
		handler: h,
		once:    once,
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.byID[sub.id] = sub
	return sub.id, nil
}

// Unsubscribe removes a subscription. It reports false when the ID is
// unknown.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)

	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
	return true
}

// Publish delivers ev to every subscriber of its topic, in
// subscription order, on the calling goroutine. A zero Time is stamped
// now. Handler panics are recovered and counted; remaining handlers
// still run. Publishing on a closed bus is a counted no-op.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.dropped.Add(1)
		return
	}
	list := b.subs[ev.Topic]
	targets := make([]*subscription, len(list))
	copy(targets, list)
	b.mu.Unlock()

	b.published.Add(1)

	for _, sub := range targets {
		if sub.once {
			// Claim before delivering: a reentrant publish must not
			// see the subscription still registered.
			if !b.Unsubscribe(sub.id) {
				continue
			}
		}
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
		}
	}()
	sub.handler(ev)
	b.delivered.Add(1)
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	n := len(b.byID)
	b.mu.Unlock()

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		HandlerPanics: b.panics.Load(),
		Subscribers:   n,
	}
}

// Close drops every subscription. Later publishes are counted no-ops
// and later subscribes fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subs = make(map[Topic][]*subscription)
	b.byID = make(map[string]*subscription)
}
