package bus

import (
	"sync"
	"testing"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	b := New()
	topic := DeviceUpdated("dev-1")

	var got []any
	unsub := b.Subscribe(topic, func(payload any) {
		got = append(got, payload)
	})
	defer unsub()

	b.Publish(topic, "first")
	b.Publish(topic, "second")

	if len(got) != 2 {
		t.Fatalf("handler invocations = %d, want 2", len(got))
	}
	if got[0] != "first" || got[1] != "second" {
		t.Errorf("payloads = %v, want [first second]", got)
	}
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	b := New()

	dev1 := 0
	dev2 := 0
	b.Subscribe(DeviceUpdated("dev-1"), func(any) { dev1++ })
	b.Subscribe(DeviceUpdated("dev-2"), func(any) { dev2++ })

	b.Publish(DeviceUpdated("dev-1"), nil)

	if dev1 != 1 {
		t.Errorf("dev-1 handler invocations = %d, want 1", dev1)
	}
	if dev2 != 0 {
		t.Errorf("dev-2 handler invocations = %d, want 0", dev2)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	topic := RoomDevicesUpdated("room-1")

	calls := 0
	unsub := b.Subscribe(topic, func(any) { calls++ })

	b.Publish(topic, nil)
	unsub()
	b.Publish(topic, nil)

	if calls != 1 {
		t.Errorf("handler invocations = %d, want 1", calls)
	}

	// Double unsubscribe must not panic or affect other subscribers.
	unsub()

	if b.SubscriberCount(topic) != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount(topic))
	}
}

func TestBus_SubscribeAllSeesEveryTopic(t *testing.T) {
	b := New()

	var topics []Topic
	unsub := b.SubscribeAll(func(topic Topic, _ any) {
		topics = append(topics, topic)
	})
	defer unsub()

	b.Publish(DeviceUpdated("dev-1"), nil)
	b.Publish(RoomDevicesUpdated("room-1"), nil)
	b.Publish(NotificationsUpdated(), nil)

	if len(topics) != 3 {
		t.Fatalf("catch-all invocations = %d, want 3", len(topics))
	}
	if topics[0] != DeviceUpdated("dev-1") || topics[1] != RoomDevicesUpdated("room-1") {
		t.Errorf("topics = %v", topics)
	}

	unsub()
	b.Publish(DeviceUpdated("dev-2"), nil)
	if len(topics) != 3 {
		t.Error("catch-all handler still invoked after unsubscribe")
	}
}

func TestBus_PanickingHandlerDoesNotAbortPublish(t *testing.T) {
	b := New()
	topic := RoomControlCompleted("room-1")

	secondRan := false
	b.Subscribe(topic, func(any) { panic("boom") })
	b.Subscribe(topic, func(any) { secondRan = true })

	b.Publish(topic, nil)

	if !secondRan {
		t.Error("second handler did not run after first handler panicked")
	}
}

func TestBus_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	b := New()
	topic := NotificationsUpdated()

	var unsub func()
	calls := 0
	unsub = b.Subscribe(topic, func(any) {
		calls++
		unsub()
	})

	b.Publish(topic, nil)
	b.Publish(topic, nil)

	if calls != 1 {
		t.Errorf("handler invocations = %d, want 1", calls)
	}
}

func TestBus_ConcurrentAccess(t *testing.T) {
	b := New()
	topic := DeviceUpdated("dev-1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := b.Subscribe(topic, func(any) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			b.Publish(topic, nil)
		}()
	}
	wg.Wait()
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in     string
		want   Topic
		wantOK bool
	}{
		{"device/d1/updated", DeviceUpdated("d1"), true},
		{"room/r1/devices-updated", RoomDevicesUpdated("r1"), true},
		{"toast/all/raised", ToastRaised(), true},
		{"device/d1", Topic{}, false},
		{"device//updated", Topic{}, false},
		{"/d1/updated", Topic{}, false},
		{"device/d1/updated/extra", Topic{}, false},
		{"", Topic{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTopic(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("= %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseTopic_RoundTrip(t *testing.T) {
	for _, topic := range []Topic{
		DeviceUpdated("d1"),
		RoomControlCompleted("r2"),
		NotificationsUpdated(),
		ToastRaised(),
	} {
		got, ok := ParseTopic(topic.String())
		if !ok || got != topic {
			t.Errorf("ParseTopic(%q) = (%+v, %t), want the original topic", topic.String(), got, ok)
		}
	}
}
