package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/inventory"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
)

func TestTrackerLifecycle(t *testing.T) {
	st := NewStateTracker(nil)
	st.AddWorkstation("sawmill")

	st.ProcessStarted("sawmill", RunningProcess{InstanceID: "i1", ProcessID: "log_to_planks", ProcessType: "woodworking", Duration: time.Second})
	ws, ok := st.Workstation("sawmill")
	require.True(t, ok)
	assert.Contains(t, ws.Running, "woodworking")

	st.ProcessFinished("sawmill", "i1", "woodworking")
	ws, _ = st.Workstation("sawmill")
	assert.Empty(t, ws.Running)
	assert.Equal(t, 1, ws.Finished)
}

func TestTrackerIgnoresLateStart(t *testing.T) {
	st := NewStateTracker(nil)

	// 异步事件可能先收到完工
	st.ProcessFinished("sawmill", "i1", "woodworking")
	st.ProcessStarted("sawmill", RunningProcess{InstanceID: "i1", ProcessType: "woodworking", Duration: time.Second})
	ws, _ := st.Workstation("sawmill")
	assert.Empty(t, ws.Running)

	st.ProcessStarted("sawmill", RunningProcess{InstanceID: "i2", ProcessType: "woodworking"})
	ws, _ = st.Workstation("sawmill")
	assert.Empty(t, ws.Running, "zero duration processes never show as running")
}

func TestTrackerSnapshotIsCopy(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	require.True(t, inv.GiveItem("sawmill", "sawmill", resource.Stack{Kind: "log", Count: 3}, []int{0}))

	st := NewStateTracker(nil)
	st.UpdateInventory("sawmill", inv)
	snap := st.GetStateSnapshot()
	snap.Workstations["sawmill"].Items[0] = resource.Stack{Kind: "stone", Count: 1}

	ws, _ := st.Workstation("sawmill")
	assert.Equal(t, resource.Stack{Kind: "log", Count: 3}, ws.Items[0])
	assert.Equal(t, []types.WorkstationID{"sawmill"}, st.IDs())
}
