package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workstation-engine/internal/types"
)

func TestWorkstationSupport(t *testing.T) {
	ws := NewWorkstation("forge", types.SlotLayout{
		types.CategoryInput:      {Start: 0, Count: 2},
		types.CategoryFluidInput: {Slots: []int{4, 6}},
	}, map[string]types.ProcessTypeSupport{
		"smelting": {MaxLevel: 2, Automatic: true},
		"alloying": {MaxLevel: 1},
	})

	assert.Equal(t, []string{"alloying", "smelting"}, ws.ProcessTypes())
	assert.Equal(t, []string{"smelting"}, ws.AutomaticTypes())
	assert.True(t, ws.HasAutomatic())
	assert.True(t, ws.Supports("smelting", 2))
	assert.False(t, ws.Supports("smelting", 3))
	assert.False(t, ws.Supports("woodworking", 0))
	assert.True(t, ws.IsSelf("forge"))
	assert.False(t, ws.IsSelf("player"))

	assert.Equal(t, []int{0, 1}, ws.Layout.Slots(types.CategoryInput))
	assert.Equal(t, []int{4, 6}, ws.Layout.Slots(types.CategoryFluidInput))
	assert.True(t, ws.Layout.Contains(types.CategoryFluidInput, 6))
	assert.False(t, ws.Layout.Contains(types.CategoryFluidInput, 5))
	assert.Nil(t, ws.Layout.Slots(types.CategoryOutput))
	assert.Equal(t, []string{types.CategoryFluidInput, types.CategoryInput}, ws.Layout.Categories())
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Add(NewWorkstation("b", nil, nil)))
	require.NoError(t, d.Add(NewWorkstation("a", nil, nil)))
	assert.Error(t, d.Add(NewWorkstation("a", nil, nil)))

	all := d.All()
	require.Len(t, all, 2)
	assert.Equal(t, types.WorkstationID("a"), all[0].ID)

	d.Remove("a")
	_, ok := d.Get("a")
	assert.False(t, ok)
	_, ok = d.Get("b")
	assert.True(t, ok)
}
