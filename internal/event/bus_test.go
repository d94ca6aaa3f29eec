package event

import (
	"errors"
	"testing"
	"time"
)

func TestBusSubscribePublish(t *testing.T) {
	b := NewBus()

	var got Event
	var calls int
	_, err := b.Subscribe(TopicElementChanged, func(ev Event) {
		got = ev
		calls++
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	b.Publish(Event{
		Topic:     TopicElementChanged,
		SubjectID: "hero",
		Data:      map[string]any{"path": "style.color"},
	})

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if got.SubjectID != "hero" {
		t.Errorf("SubjectID = %q, want hero", got.SubjectID)
	}
	if got.Data["path"] != "style.color" {
		t.Errorf("Data[path] = %v, want style.color", got.Data["path"])
	}
	if got.Time.IsZero() {
		t.Error("zero event time was not stamped")
	}
}

func TestBusKeepsExplicitTime(t *testing.T) {
	b := NewBus()
	when := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	var got Event
	b.Subscribe(TopicDocumentLoaded, func(ev Event) { got = ev })
	b.Publish(Event{Topic: TopicDocumentLoaded, Time: when})

	if !got.Time.Equal(when) {
		t.Errorf("Time = %v, want %v", got.Time, when)
	}
}

func TestBusTopicIsolation(t *testing.T) {
	b := NewBus()

	var wrong int
	b.Subscribe(TopicElementRemoved, func(Event) { wrong++ })
	b.Publish(Event{Topic: TopicElementChanged})

	if wrong != 0 {
		t.Error("handler received an event from another topic")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	b := NewBus()

	var order []string
	b.Subscribe(TopicHistoryRecorded, func(Event) { order = append(order, "first") })
	b.Subscribe(TopicHistoryRecorded, func(Event) { order = append(order, "second") })

	b.Publish(Event{Topic: TopicHistoryRecorded})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v, want [first second]", order)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()

	var calls int
	id, _ := b.Subscribe(TopicElementChanged, func(Event) { calls++ })

	if !b.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for a live subscription")
	}
	b.Publish(Event{Topic: TopicElementChanged})
	if calls != 0 {
		t.Error("handler called after unsubscribe")
	}

	if b.Unsubscribe(id) {
		t.Error("second Unsubscribe should return false")
	}
	if b.Unsubscribe("bogus") {
		t.Error("Unsubscribe of unknown ID should return false")
	}
}

func TestBusSubscribeOnce(t *testing.T) {
	b := NewBus()

	var calls int
	b.SubscribeOnce(TopicHistoryUndone, func(Event) { calls++ })

	b.Publish(Event{Topic: TopicHistoryUndone})
	b.Publish(Event{Topic: TopicHistoryUndone})

	if calls != 1 {
		t.Errorf("once handler called %d times, want 1", calls)
	}
	if got := b.Stats().Subscribers; got != 0 {
		t.Errorf("Subscribers = %d, want 0 after once delivery", got)
	}
}

func TestBusSubscribeOncePublishFromHandler(t *testing.T) {
	b := NewBus()

	// The handler republishes its own topic; the subscription must
	// already be gone when the nested publish copies the list.
	var calls int
	b.SubscribeOnce(TopicHistoryRecorded, func(Event) {
		calls++
		b.Publish(Event{Topic: TopicHistoryRecorded})
	})

	b.Publish(Event{Topic: TopicHistoryRecorded})

	if calls != 1 {
		t.Errorf("once handler called %d times, want 1", calls)
	}
	if got := b.Stats().Subscribers; got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

func TestBusSubscribeErrors(t *testing.T) {
	b := NewBus()

	if _, err := b.Subscribe(TopicElementChanged, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := b.Subscribe("", func(Event) {}); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestBusHandlerPanic(t *testing.T) {
	b := NewBus()

	var after int
	b.Subscribe(TopicElementChanged, func(Event) { panic("boom") })
	b.Subscribe(TopicElementChanged, func(Event) { after++ })

	b.Publish(Event{Topic: TopicElementChanged})

	if after != 1 {
		t.Error("handler after the panicking one did not run")
	}
	stats := b.Stats()
	if stats.HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", stats.HandlerPanics)
	}
	if stats.Delivered != 1 {
		t.Errorf("Delivered = %d, want 1 (panicked delivery not counted)", stats.Delivered)
	}
}

func TestBusUnsubscribeDuringDispatch(t *testing.T) {
	b := NewBus()

	var calls int
	var id string
	id, _ = b.Subscribe(TopicElementChanged, func(Event) {
		calls++
		b.Unsubscribe(id)
	})

	b.Publish(Event{Topic: TopicElementChanged})
	b.Publish(Event{Topic: TopicElementChanged})

	if calls != 1 {
		t.Errorf("self-unsubscribing handler called %d times, want 1", calls)
	}
}

func TestBusReentrantPublish(t *testing.T) {
	b := NewBus()

	var chained int
	b.Subscribe(TopicElementChanged, func(Event) {
		b.Publish(Event{Topic: TopicHistoryRecorded})
	})
	b.Subscribe(TopicHistoryRecorded, func(Event) { chained++ })

	b.Publish(Event{Topic: TopicElementChanged})

	if chained != 1 {
		t.Errorf("chained handler called %d times, want 1", chained)
	}
}

func TestBusClose(t *testing.T) {
	b := NewBus()

	var calls int
	b.Subscribe(TopicElementChanged, func(Event) { calls++ })
	b.Close()

	b.Publish(Event{Topic: TopicElementChanged})
	if calls != 0 {
		t.Error("handler called after Close")
	}
	if b.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", b.Stats().Dropped)
	}

	if _, err := b.Subscribe(TopicElementChanged, func(Event) {}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestBusStats(t *testing.T) {
	b := NewBus()
	b.Subscribe(TopicElementChanged, func(Event) {})
	b.Subscribe(TopicElementRemoved, func(Event) {})

	b.Publish(Event{Topic: TopicElementChanged})
	b.Publish(Event{Topic: TopicElementChanged})

	stats := b.Stats()
	if stats.Published != 2 {
		t.Errorf("Published = %d, want 2", stats.Published)
	}
	if stats.Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", stats.Delivered)
	}
	if stats.Subscribers != 2 {
		t.Errorf("Subscribers = %d, want 2", stats.Subscribers)
	}
}
