package api

import (
	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// ToastNotifier surfaces transient user-facing messages by publishing them
// on the event bus; the WebSocket relay carries them to panels subscribed to
// the toast topic. It satisfies the store's notifier interface.
type ToastNotifier struct {
	bus *bus.Bus
}

// NewToastNotifier creates a notifier publishing on the given bus.
func NewToastNotifier(b *bus.Bus) *ToastNotifier {
	return &ToastNotifier{bus: b}
}

// Toast publishes a transient message. Toasts raised before any subscriber
// is listening are dropped, like every other bus event.
func (n *ToastNotifier) Toast(kind model.NotificationKind, message string) {
	n.bus.Publish(bus.ToastRaised(), map[string]string{
		"kind":    string(kind),
		"message": message,
	})
}
