package handlers

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/engine"
	"workstation-engine/internal/event"
	"workstation-engine/internal/inventory"
	"workstation-engine/internal/metrics"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/web"
)

func TestEventHandlersFeedTrackerAndMetrics(t *testing.T) {
	bus := event.NewBus()
	st := web.NewStateTracker(nil)
	inv := inventory.NewMemory(0, 0)
	RegisterEventHandlers(bus, st, inv, slog.Default())

	automatic := testutil.ToFloat64(metrics.ProcessesStartedTotal.WithLabelValues("sawing", "automatic"))
	rejected := testutil.ToFloat64(metrics.ProcessesRejectedTotal.WithLabelValues("already_running"))

	bus.Publish(event.Event{Type: event.ProcessStarted, Workstation: "sawmill", Instigator: "sawmill",
		InstanceID: "i1", ProcessID: "log_to_planks", ProcessType: "sawing", Duration: time.Second})
	bus.Wait()
	ws, ok := st.Workstation("sawmill")
	require.True(t, ok)
	assert.Contains(t, ws.Running, "sawing")

	bus.Publish(event.Event{Type: event.ProcessFinished, Workstation: "sawmill", Instigator: "sawmill",
		InstanceID: "i1", ProcessID: "log_to_planks", ProcessType: "sawing", Duration: time.Second})
	bus.Publish(event.Event{Type: event.ProcessRejected, Workstation: "sawmill", ProcessID: "log_to_planks",
		Error: fmt.Errorf("request: %w", engine.ErrAlreadyRunning)})
	require.True(t, inv.GiveItem("sawmill", "sawmill", resource.Stack{Kind: "plank", Count: 4}, []int{1}))
	bus.Publish(event.Event{Type: event.WorkstationChanged, Workstation: "sawmill"})
	bus.Wait()

	ws, _ = st.Workstation("sawmill")
	assert.Empty(t, ws.Running)
	assert.Equal(t, 1, ws.Finished)
	assert.Equal(t, 1, ws.Rejected)
	assert.Equal(t, resource.Stack{Kind: "plank", Count: 4}, ws.Items[1])

	assert.Equal(t, automatic+1, testutil.ToFloat64(metrics.ProcessesStartedTotal.WithLabelValues("sawing", "automatic")))
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.ProcessesRejectedTotal.WithLabelValues("already_running")))
}
