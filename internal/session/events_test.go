package session

import (
	"sync"
	"testing"
)

func TestNewEventBus(t *testing.T) {
	eb := NewEventBus()
	if eb == nil {
		t.Fatal("expected non-nil EventBus")
	}
	if eb.handlers == nil {
		t.Fatal("expected non-nil handlers map")
	}
}

func TestEventBus_Subscribe(t *testing.T) {
	eb := NewEventBus()
	called := false

	eb.Subscribe(EventSearchStarted, func(e Event) {
		called = true
	})
	eb.Subscribe(EventPageMerged, func(e Event) {
		t.Error("handler for another type must not run")
	})

	eb.Publish(Event{Type: EventSearchStarted})

	if !called {
		t.Error("handler was not called")
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	eb := NewEventBus()
	count := 0

	eb.SubscribeAll(func(e Event) {
		count++
	})

	eb.Publish(Event{Type: EventSearchStarted})
	eb.Publish(Event{Type: EventPageMerged})
	eb.Publish(Event{Type: EventDetailLoaded})

	if count != 3 {
		t.Errorf("expected 3 calls, got %d", count)
	}
}

func TestEventBus_PublishWithData(t *testing.T) {
	eb := NewEventBus()
	var received Event

	eb.Subscribe(EventPageMerged, func(e Event) {
		received = e
	})

	eb.PublishWithData(EventPageMerged, "sess-123", 7, map[string]any{"count": 20})

	if received.SessionID != "sess-123" {
		t.Errorf("expected session 'sess-123', got %q", received.SessionID)
	}
	if received.Generation != 7 {
		t.Errorf("expected generation 7, got %d", received.Generation)
	}
	if received.Data["count"] != 20 {
		t.Error("data not properly passed")
	}
	if received.Timestamp.IsZero() {
		t.Error("timestamp should be set on publish")
	}
}

func TestEventBus_NilIsSafe(t *testing.T) {
	var eb *EventBus
	eb.Publish(Event{Type: EventSearchStarted})
	eb.PublishWithData(EventSearchFailed, "x", 1, nil)
}

func TestEventBus_SubscribeFromHandler(t *testing.T) {
	eb := NewEventBus()
	eb.Subscribe(EventSearchStarted, func(e Event) {
		// Must not deadlock: handlers run outside the bus lock.
		eb.Subscribe(EventPageMerged, func(Event) {})
	})
	eb.Publish(Event{Type: EventSearchStarted})
}

func TestEventBus_Concurrent(t *testing.T) {
	eb := NewEventBus()
	var mu sync.Mutex
	count := 0

	eb.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Publish(Event{Type: EventPageRequested})
		}()
	}
	wg.Wait()

	if count != 100 {
		t.Errorf("expected 100 events, got %d", count)
	}
}
