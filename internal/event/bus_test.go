package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var got []string
	record := func(tag string) Handler {
		return func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, tag+":"+e.ProcessID)
		}
	}
	bus.Subscribe(ProcessStarted, record("a"))
	bus.Subscribe(ProcessStarted, record("b"))
	bus.Subscribe(ProcessFinished, record("finished"))

	bus.Publish(Event{Type: ProcessStarted, ProcessID: "log_to_planks"})
	bus.Publish(Event{Type: WorkstationChanged, Workstation: "sawmill"})
	bus.Wait()

	assert.ElementsMatch(t, []string{"a:log_to_planks", "b:log_to_planks"}, got)
}

func TestWaitWithoutEvents(t *testing.T) {
	NewBus().Wait()
}
