package bus

import (
	"strings"
	"sync"
)

// Kind identifies the entity class a topic refers to.
type Kind string

// Kind constants.
const (
	KindDevice       Kind = "device"
	KindRoom         Kind = "room"
	KindSensor       Kind = "sensor"
	KindNotification Kind = "notification"
	KindToast        Kind = "toast"
)

// Aspect identifies what happened to the entity.
type Aspect string

// Aspect constants.
const (
	AspectUpdated          Aspect = "updated"
	AspectDevicesUpdated   Aspect = "devices-updated"
	AspectControlCompleted Aspect = "control-completed"
	AspectRaised           Aspect = "raised"
)

// Topic addresses a single entity's event stream. Topics are comparable and
// can be used as map keys; the id component keeps the topic space open-ended.
type Topic struct {
	Kind   Kind
	ID     string
	Aspect Aspect
}

// String renders the topic in the form kind/id/aspect, used for logging and
// for WebSocket channel names.
func (t Topic) String() string {
	return string(t.Kind) + "/" + t.ID + "/" + string(t.Aspect)
}

// ParseTopic is the inverse of String. It reports ok=false for anything that
// is not three non-empty slash-separated components; it does not restrict
// kinds or aspects to the known constants, keeping the topic space
// open-ended for both sides.
func ParseTopic(s string) (Topic, bool) {
	kind, rest, ok := strings.Cut(s, "/")
	if !ok {
		return Topic{}, false
	}
	id, aspect, ok := strings.Cut(rest, "/")
	if !ok || kind == "" || id == "" || aspect == "" || strings.Contains(aspect, "/") {
		return Topic{}, false
	}
	return Topic{Kind: Kind(kind), ID: id, Aspect: Aspect(aspect)}, true
}

// DeviceUpdated is the topic published after a device's detail (including
// nested sensors and actuators) has been re-fetched and merged.
func DeviceUpdated(id string) Topic {
	return Topic{Kind: KindDevice, ID: id, Aspect: AspectUpdated}
}

// RoomDevicesUpdated is the topic published when a room's member device list
// has changed in the resource cache.
func RoomDevicesUpdated(id string) Topic {
	return Topic{Kind: KindRoom, ID: id, Aspect: AspectDevicesUpdated}
}

// RoomControlCompleted is the topic published after a bulk room on/off
// command has been confirmed and applied.
func RoomControlCompleted(id string) Topic {
	return Topic{Kind: KindRoom, ID: id, Aspect: AspectControlCompleted}
}

// NotificationsUpdated is the topic published when the notification
// collection changes (new items, read-state mutations).
func NotificationsUpdated() Topic {
	return Topic{Kind: KindNotification, ID: "all", Aspect: AspectUpdated}
}

// ToastRaised is the topic for transient user-facing toasts. Toasts are not
// stored; subscribers that miss one miss it for good.
func ToastRaised() Topic {
	return Topic{Kind: KindToast, ID: "all", Aspect: AspectRaised}
}

// Handler receives the payload published to a topic. Handlers run on the
// publisher's goroutine and should return quickly.
type Handler func(payload any)

// TopicHandler receives every published event regardless of topic. Used by
// fan-out consumers such as the WebSocket bridge, which cannot enumerate
// entity ids up front.
type TopicHandler func(topic Topic, payload any)

// Logger is the logging interface used by the bus.
type Logger interface {
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Bus is a synchronous in-process publish/subscribe dispatcher keyed by
// Topic. All methods are safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic]map[int]Handler
	allSubs map[int]TopicHandler
	next    int
	logger  Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:    make(map[Topic]map[int]Handler),
		allSubs: make(map[int]TopicHandler),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger used to report recovered handler panics.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if handlers, ok := b.subs[topic]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subs, topic)
			}
		}
		b.mu.Unlock()
	}
}

// SubscribeAll registers a handler for every topic and returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(handler TopicHandler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.allSubs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.allSubs, id)
		b.mu.Unlock()
	}
}

// Publish synchronously invokes every handler currently subscribed to the
// topic, then every catch-all handler. Handlers are snapshotted under the
// lock and invoked outside it, so a handler may subscribe or unsubscribe
// without deadlocking.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	all := make([]TopicHandler, 0, len(b.allSubs))
	for _, h := range b.allSubs {
		all = append(all, h)
	}
	logger := b.logger
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(topic, h, payload, logger)
	}
	for _, h := range all {
		topicH := h
		b.invoke(topic, func(p any) { topicH(topic, p) }, payload, logger)
	}
}

// SubscriberCount returns the number of handlers subscribed to a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// invoke runs a single handler with panic isolation, so one failing
// subscriber cannot abort the publish loop.
func (b *Bus) invoke(topic Topic, h Handler, payload any, logger Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked", "topic", topic.String(), "panic", r)
		}
	}()
	h(payload)
}
