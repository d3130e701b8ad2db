package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"workstation-engine/internal/inventory"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
)

const ws = types.WorkstationID("bench")

func fill(t *testing.T, inv *inventory.Memory, items map[int]resource.Stack) {
	t.Helper()
	for slot, s := range items {
		require.True(t, inv.GiveItem(ws, "test", s, []int{slot}))
	}
}

func TestFindItemsAcrossSlots(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	fill(t, inv, map[int]resource.Stack{
		0: {Kind: "log", Count: 2},
		1: {Kind: "stone", Count: 5},
		2: {Kind: "log", Count: 3},
	})

	found, ok := resource.FindItems(inv, ws, []int{0, 1, 2}, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 4},
	}, nil, nil)
	require.True(t, ok)
	assert.Equal(t, resource.Reservation{0: 2, 2: 2}, found)
	assert.Equal(t, 4, found.Total())
}

func TestFindItemsFailsWithoutPartialResult(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	fill(t, inv, map[int]resource.Stack{0: {Kind: "log", Count: 2}})

	found, ok := resource.FindItems(inv, ws, []int{0}, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 1},
		{Name: "iron", Match: resource.KindIs("iron"), Amount: 1},
	}, nil, nil)
	assert.False(t, ok)
	assert.Nil(t, found)
	// 容器未被修改
	assert.Equal(t, map[int]resource.Stack{0: {Kind: "log", Count: 2}}, inv.Items(ws))
}

func TestFindItemsDoesNotCountUnitsTwice(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	fill(t, inv, map[int]resource.Stack{0: {Kind: "log", Count: 3}})

	anyItem := func(resource.Stack) bool { return true }
	_, ok := resource.FindItems(inv, ws, []int{0}, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 2},
		{Name: "anything", Match: anyItem, Amount: 2},
	}, nil, nil)
	assert.False(t, ok, "two groups need four units but the slot only holds three")

	found, ok := resource.FindItems(inv, ws, []int{0}, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 2},
		{Name: "anything", Match: anyItem, Amount: 1},
	}, nil, nil)
	require.True(t, ok)
	assert.Equal(t, resource.Reservation{0: 3}, found)
}

func TestFindItemsExcludesHeldUnits(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	fill(t, inv, map[int]resource.Stack{0: {Kind: "log", Count: 3}})
	reqs := []resource.ItemRequirement{{Name: "log", Match: resource.KindIs("log"), Amount: 2}}

	_, ok := resource.FindItems(inv, ws, []int{0}, reqs, resource.Reservation{0: 2}, nil)
	assert.False(t, ok)

	found, ok := resource.FindItems(inv, ws, []int{0}, reqs, resource.Reservation{0: 1}, nil)
	require.True(t, ok)
	assert.Equal(t, resource.Reservation{0: 2}, found)
}

func TestFindItemsZeroAmountIsSatisfied(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	found, ok := resource.FindItems(inv, ws, nil, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 0},
	}, nil, nil)
	assert.True(t, ok)
	assert.Empty(t, found)
}

func TestFindItemsHonoursFilter(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	fill(t, inv, map[int]resource.Stack{0: {Kind: "log", Count: 5}, 1: {Kind: "log", Count: 5}})

	found, ok := resource.FindItems(inv, ws, []int{0, 1}, []resource.ItemRequirement{
		{Name: "log", Match: resource.KindIs("log"), Amount: 3},
	}, nil, func(slot int, _ resource.Stack) bool { return slot != 0 })
	require.True(t, ok)
	assert.Equal(t, resource.Reservation{1: 3}, found)
}

func TestFindFluidsUsesEpsilon(t *testing.T) {
	inv := inventory.NewMemory(0, 0)
	require.True(t, inv.AddFluid(ws, "test", resource.Fluid{Kind: "water", Volume: 99.9995}, []int{0}))

	found, ok := resource.FindFluids(inv, ws, []int{0}, []resource.FluidRequirement{
		{Name: "water", Match: resource.FluidIs("water"), Volume: 100},
	}, nil, nil)
	require.True(t, ok)
	assert.InDelta(t, 99.9995, found[0], 1e-9)

	_, ok = resource.FindFluids(inv, ws, []int{0}, []resource.FluidRequirement{
		{Name: "water", Match: resource.FluidIs("water"), Volume: 101},
	}, nil, nil)
	assert.False(t, ok)
}

func TestCanAbsorbItems(t *testing.T) {
	inv := inventory.NewMemory(10, 0)
	fill(t, inv, map[int]resource.Stack{0: {Kind: "plank", Count: 4}, 1: {Kind: "stone", Count: 10}})

	// plank 堆叠到槽 0，stick 需要一个空槽
	assert.True(t, resource.CanAbsorbItems(inv, ws, []int{0, 1, 2}, []resource.Stack{
		{Kind: "plank", Count: 4}, {Kind: "stick", Count: 2},
	}))
	// 没有空槽时 stick 放不下
	assert.False(t, resource.CanAbsorbItems(inv, ws, []int{0, 1}, []resource.Stack{
		{Kind: "plank", Count: 4}, {Kind: "stick", Count: 2},
	}))
	// 堆叠会超过上限
	assert.False(t, resource.CanAbsorbItems(inv, ws, []int{0, 1}, []resource.Stack{{Kind: "plank", Count: 7}}))
}

func TestCanAbsorbFluids(t *testing.T) {
	inv := inventory.NewMemory(0, 500)
	require.True(t, inv.AddFluid(ws, "test", resource.Fluid{Kind: "water", Volume: 300}, []int{0}))

	assert.True(t, resource.CanAbsorbFluids(inv, ws, []int{0}, []resource.Fluid{{Kind: "water", Volume: 200}}))
	assert.False(t, resource.CanAbsorbFluids(inv, ws, []int{0}, []resource.Fluid{{Kind: "lava", Volume: 10}}))
	assert.True(t, resource.CanAbsorbFluids(inv, ws, []int{0, 1}, []resource.Fluid{{Kind: "lava", Volume: 10}}))
}

// 预留要么完全满足所有需求，要么为空；成功时每个槽位的预留不超过可用数量
func TestFindItemsIsAtomic(t *testing.T) {
	kinds := []string{"log", "plank", "stone"}
	rapid.Check(t, func(t *rapid.T) {
		inv := inventory.NewMemory(0, 0)
		slotCount := rapid.IntRange(1, 6).Draw(t, "slots")
		slots := make([]int, slotCount)
		for i := range slots {
			slots[i] = i
			if rapid.Bool().Draw(t, "occupied") {
				kind := rapid.SampledFrom(kinds).Draw(t, "kind")
				count := rapid.IntRange(1, 20).Draw(t, "count")
				inv.GiveItem(ws, "test", resource.Stack{Kind: kind, Count: count}, []int{i})
			}
		}
		var reqs []resource.ItemRequirement
		need := map[string]int{}
		for i := rapid.IntRange(0, 3).Draw(t, "groups"); i > 0; i-- {
			kind := rapid.SampledFrom(kinds).Draw(t, "req_kind")
			amount := rapid.IntRange(0, 25).Draw(t, "amount")
			need[kind] += amount
			reqs = append(reqs, resource.ItemRequirement{Name: kind, Match: resource.KindIs(kind), Amount: amount})
		}
		before := inv.Items(ws)

		found, ok := resource.FindItems(inv, ws, slots, reqs, nil, nil)

		if !(assert.Equal(t, before, inv.Items(ws))) {
			t.Fatalf("inventory mutated")
		}
		have := map[string]int{}
		for _, s := range before {
			have[s.Kind] += s.Count
		}
		satisfiable := true
		for kind, n := range need {
			if have[kind] < n {
				satisfiable = false
			}
		}
		if ok != satisfiable {
			t.Fatalf("ok=%v but satisfiable=%v (need %v, have %v)", ok, satisfiable, need, have)
		}
		if !ok {
			if found != nil {
				t.Fatalf("failed match returned a partial reservation %v", found)
			}
			return
		}
		got := map[string]int{}
		for slot, n := range found {
			s := before[slot]
			if n > s.Count {
				t.Fatalf("slot %d reserved %d of %d", slot, n, s.Count)
			}
			got[s.Kind] += n
		}
		for kind, n := range need {
			if got[kind] != n {
				t.Fatalf("reserved %d %s, want %d", got[kind], kind, n)
			}
		}
	})
}
