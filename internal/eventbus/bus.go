package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lenswatch/nvr-core/internal/logging"
)

// Topic names the two event streams the core publishes (spec.md §6).
type Topic string

const (
	TopicStoragePressure Topic = "storage/pressure"
	TopicStorageCleanup  Topic = "storage/cleanup"
)

// Message is one published event.
type Message struct {
	Topic     Topic
	EventID   string
	Timestamp time.Time
	Data      map[string]any
}

// Handler receives published messages. Handlers run synchronously with
// respect to each other but never under the Bus's lock, so a slow or
// panicking handler cannot block publishers or other subscribers'
// registration.
type Handler func(Message)

// Bus is a minimal topic pub/sub: subscribe a handler, publish a
// message, done. storage/pressure is retained — a subscriber joining
// after the last publish immediately receives the last value; the
// cleanup topic is not retained, since "last cleanup result" has no
// meaning for a subscriber that missed it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	retained map[Topic]Message
	logger   *logging.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		retained: make(map[Topic]Message),
		logger:   logging.GetLogger("eventbus"),
	}
}

// Subscribe registers a handler for a topic. If the topic is
// storage/pressure and a message was previously published, the handler
// is invoked immediately with the retained value.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	retained, ok := b.retained[topic]
	b.mu.Unlock()

	if ok {
		h(retained)
	}
}

// Publish delivers data to every current subscriber of topic,
// synchronously, in registration order. storage/pressure publishes are
// retained for future subscribers.
func (b *Bus) Publish(topic Topic, data map[string]any) {
	msg := Message{
		Topic:     topic,
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	if topic == TopicStoragePressure {
		b.retained[topic] = msg
	}
	b.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.WithFields(logging.Fields{"topic": string(topic), "panic": r}).Error("event handler panicked")
				}
			}()
			h(msg)
		}()
	}
}
