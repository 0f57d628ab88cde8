// Package events provides a lightweight pub/sub event bus for runtime observability.
package events

import "sync"

// Listener is a function that handles events.
type Listener func(*Event)

// Unsubscribe removes a previously registered listener.
type Unsubscribe func()

const (
	defaultWorkerPoolSize = 4
	defaultEventBufferSize = 64
)

// Option configures an EventBus constructed via NewEventBus.
type Option func(*busConfig)

type busConfig struct {
	workerPoolSize int
	bufferSize     int
}

// WithWorkerPoolSize sets the number of goroutines draining the event queue.
// Values <= 0 are ignored and the default is kept.
func WithWorkerPoolSize(n int) Option {
	return func(c *busConfig) {
		if n > 0 {
			c.workerPoolSize = n
		}
	}
}

// WithEventBufferSize sets the capacity of the internal event queue.
// Values <= 0 are ignored and the default is kept.
func WithEventBufferSize(n int) Option {
	return func(c *busConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

type subscription struct {
	id       uint64
	listener Listener
}

// EventBus manages event distribution to listeners through a bounded worker pool,
// so a slow or blocking listener cannot stall the component that published the event.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]subscription
	globalListeners []subscription
	nextID          uint64

	queue chan *Event
	wg    sync.WaitGroup

	closeMu sync.Mutex
	closed  bool
}

// NewEventBus creates a new event bus with the given options applied over the defaults
// (4 workers, a 64-event buffer).
func NewEventBus(opts ...Option) *EventBus {
	cfg := &busConfig{
		workerPoolSize: defaultWorkerPoolSize,
		bufferSize:     defaultEventBufferSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	eb := &EventBus{
		listeners: make(map[EventType][]subscription),
		queue:     make(chan *Event, cfg.bufferSize),
	}

	for range cfg.workerPoolSize {
		eb.wg.Add(1)
		go eb.worker()
	}

	return eb
}

func (eb *EventBus) worker() {
	defer eb.wg.Done()
	for event := range eb.queue {
		eb.dispatch(event)
	}
}

func (eb *EventBus) dispatch(event *Event) {
	eb.mu.RLock()
	typeListeners := append([]subscription(nil), eb.listeners[event.Type]...)
	globalListeners := append([]subscription(nil), eb.globalListeners...)
	eb.mu.RUnlock()

	for _, sub := range typeListeners {
		safeInvoke(sub.listener, event)
	}
	for _, sub := range globalListeners {
		safeInvoke(sub.listener, event)
	}
}

// Subscribe registers a listener for a specific event type and returns a function
// that removes it.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) Unsubscribe {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	eb.listeners[eventType] = append(eb.listeners[eventType], subscription{id: id, listener: listener})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		subs := eb.listeners[eventType]
		for i, s := range subs {
			if s.id == id {
				eb.listeners[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a listener for all event types and returns a function
// that removes it.
func (eb *EventBus) SubscribeAll(listener Listener) Unsubscribe {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	eb.globalListeners = append(eb.globalListeners, subscription{id: id, listener: listener})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		for i, s := range eb.globalListeners {
			if s.id == id {
				eb.globalListeners = append(eb.globalListeners[:i], eb.globalListeners[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for asynchronous delivery to all registered listeners.
// It returns false if the bus has been closed.
func (eb *EventBus) Publish(event *Event) bool {
	eb.closeMu.Lock()
	defer eb.closeMu.Unlock()
	if eb.closed {
		return false
	}
	eb.queue <- event
	return true
}

// Close stops accepting new events, waits for all queued events to be delivered,
// and shuts down the worker pool. It is safe to call more than once.
func (eb *EventBus) Close() {
	eb.closeMu.Lock()
	if eb.closed {
		eb.closeMu.Unlock()
		return
	}
	eb.closed = true
	close(eb.queue)
	eb.closeMu.Unlock()

	eb.wg.Wait()
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]subscription)
	eb.globalListeners = nil
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
