package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzaplayer/cadenza/internal/domain"
)

func TestSyncEventBus_PublishSubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var received []domain.Event
	bus.Subscribe(domain.EventVolumeChanged, func(e domain.Event) {
		received = append(received, e)
	})

	bus.Publish(domain.NewVolumeChangedEvent(0.5))
	bus.Publish(domain.NewMuteToggledEvent(true)) // different type, not delivered

	require.Len(t, received, 1)
	event, ok := received[0].(domain.VolumeChangedEvent)
	require.True(t, ok)
	assert.Equal(t, 0.5, event.Volume)
}

func TestSyncEventBus_DeliveryIsSynchronous(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	handled := false
	bus.Subscribe(domain.EventTrackRemoved, func(domain.Event) {
		handled = true
	})

	bus.Publish(domain.NewTrackRemovedEvent("t1"))

	// No sleep: the handler must have run before Publish returned
	assert.True(t, handled)
}

func TestSyncEventBus_SubscriberOrder(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var order []int
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { order = append(order, 1) })
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { order = append(order, 2) })
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { order = append(order, 3) })

	bus.Publish(domain.NewTrackStartedEvent(domain.Track{ID: "t1"}))

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSyncEventBus_Unsubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	calls := 0
	id := bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { calls++ })

	bus.Publish(domain.NewTrackStartedEvent(domain.Track{ID: "t1"}))
	bus.Unsubscribe(id)
	bus.Publish(domain.NewTrackStartedEvent(domain.Track{ID: "t1"}))

	assert.Equal(t, 1, calls)
}

func TestSyncEventBus_SubscribeAll(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var types []domain.EventType
	bus.SubscribeAll(func(e domain.Event) {
		types = append(types, e.Type())
	})

	bus.Publish(domain.NewVolumeChangedEvent(0.3))
	bus.Publish(domain.NewMuteToggledEvent(true))

	assert.Equal(t, []domain.EventType{domain.EventVolumeChanged, domain.EventMuteToggled}, types)
}

func TestSyncEventBus_PanicRecovery(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	secondCalled := false
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { panic("handler failure") })
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { secondCalled = true })

	assert.NotPanics(t, func() {
		bus.Publish(domain.NewTrackStartedEvent(domain.Track{ID: "t1"}))
	})
	assert.True(t, secondCalled)
}

func TestSyncEventBus_PublishAfterClose(t *testing.T) {
	bus := NewSyncEventBus()

	calls := 0
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { calls++ })

	require.NoError(t, bus.Close())
	bus.Publish(domain.NewTrackStartedEvent(domain.Track{ID: "t1"}))

	assert.Equal(t, 0, calls)
	assert.Error(t, bus.Close())
}

func TestSyncEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(domain.EventTrackProgress, func(domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(domain.NewTrackProgressEvent(0, 0))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, count)
}

func TestSyncEventBus_HasSubscribers(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	assert.False(t, bus.HasSubscribers(domain.EventTrackStarted))

	id := bus.Subscribe(domain.EventTrackStarted, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventTrackStarted))

	bus.Unsubscribe(id)
	assert.False(t, bus.HasSubscribers(domain.EventTrackStarted))
}
