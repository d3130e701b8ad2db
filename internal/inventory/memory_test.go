package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
)

const ws = types.WorkstationID("bench")

func TestGiveItemStacksBeforeEmptySlots(t *testing.T) {
	m := NewMemory(10, 0)
	require.True(t, m.GiveItem(ws, "p", resource.Stack{Kind: "plank", Count: 7}, []int{1}))

	require.True(t, m.GiveItem(ws, "p", resource.Stack{Kind: "plank", Count: 5}, []int{0, 1}))
	assert.Equal(t, map[int]resource.Stack{
		0: {Kind: "plank", Count: 2},
		1: {Kind: "plank", Count: 10},
	}, m.Items(ws))
}

func TestGiveItemIsAllOrNothing(t *testing.T) {
	m := NewMemory(10, 0)
	require.True(t, m.GiveItem(ws, "p", resource.Stack{Kind: "stone", Count: 10}, []int{0}))

	assert.False(t, m.GiveItem(ws, "p", resource.Stack{Kind: "plank", Count: 11}, []int{0, 1}))
	assert.Equal(t, map[int]resource.Stack{0: {Kind: "stone", Count: 10}}, m.Items(ws))
}

func TestRemoveItems(t *testing.T) {
	m := NewMemory(0, 0)
	require.True(t, m.GiveItem(ws, "p", resource.Stack{Kind: "log", Count: 3}, []int{0}))

	_, ok := m.RemoveItems(ws, "p", 0, 4)
	assert.False(t, ok)

	removed, ok := m.RemoveItems(ws, "p", 0, 3)
	require.True(t, ok)
	assert.Equal(t, resource.Stack{Kind: "log", Count: 3}, removed)
	_, present := m.ItemAt(ws, 0)
	assert.False(t, present)
}

func TestPutRunsValidator(t *testing.T) {
	m := NewMemory(0, 0)
	m.SetItemValidator(func(_ types.WorkstationID, slot int, _ types.ActorID, _ resource.Stack) bool {
		return slot != 1
	})

	require.NoError(t, m.Put(ws, "p", 0, resource.Stack{Kind: "log", Count: 1}))
	assert.ErrorIs(t, m.Put(ws, "p", 1, resource.Stack{Kind: "log", Count: 1}), ErrRejected)
	assert.ErrorIs(t, m.Put(ws, "p", 0, resource.Stack{Kind: "stone", Count: 1}), ErrNoRoom)
}

func TestFluids(t *testing.T) {
	m := NewMemory(0, 100)
	require.NoError(t, m.PutFluid(ws, "p", 0, resource.Fluid{Kind: "water", Volume: 60}))
	assert.ErrorIs(t, m.PutFluid(ws, "p", 0, resource.Fluid{Kind: "water", Volume: 50}), ErrNoRoom)
	assert.ErrorIs(t, m.PutFluid(ws, "p", 0, resource.Fluid{Kind: "lava", Volume: 1}), ErrNoRoom)

	removed, ok := m.RemoveFluid(ws, "p", 0, 60)
	require.True(t, ok)
	assert.InDelta(t, 60, removed.Volume, 1e-9)
	_, present := m.FluidAt(ws, 0)
	assert.False(t, present)
}

func TestChangeListenerCalledOutsideLock(t *testing.T) {
	m := NewMemory(0, 0)
	var seen []types.WorkstationID
	m.OnChange(func(id types.WorkstationID) {
		// 监听器中读取容器不能死锁
		_ = m.Items(id)
		seen = append(seen, id)
	})
	require.True(t, m.GiveItem(ws, "p", resource.Stack{Kind: "log", Count: 1}, []int{0}))
	_, ok := m.RemoveItems(ws, "p", 0, 1)
	require.True(t, ok)
	assert.Equal(t, []types.WorkstationID{ws, ws}, seen)
}
