package session

import (
	"sync"
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventSearchStarted  EventType = "search_started"
	EventPageRequested  EventType = "page_requested"
	EventPageMerged     EventType = "page_merged"
	EventPageDiscarded  EventType = "page_discarded"
	EventSearchFailed   EventType = "search_failed"
	EventFiltersChanged EventType = "filters_changed"
	EventDetailLoaded   EventType = "detail_loaded"
	EventDetailFailed   EventType = "detail_failed"
)

// Event represents a session event with associated data.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	SessionID  string
	Generation uint64
	Data       map[string]any
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus fans session events out to the UI and the history recorder.
// Handlers run synchronously on the publishing goroutine.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allHandlers = append(eb.allHandlers, handler)
}

// Publish sends an event to all registered handlers.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := append([]EventHandler(nil), eb.handlers[event.Type]...)
	handlers = append(handlers, eb.allHandlers...)
	eb.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// PublishWithData publishes an event with associated data.
func (eb *EventBus) PublishWithData(eventType EventType, sessionID string, generation uint64, data map[string]any) {
	eb.Publish(Event{
		Type:       eventType,
		SessionID:  sessionID,
		Generation: generation,
		Data:       data,
	})
}
