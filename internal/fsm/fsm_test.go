package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	f := NewFSM("inst-1")
	assert.Equal(t, StateCreated, f.Current())

	require.NoError(t, f.Fire(EventStart))
	assert.Equal(t, StateRunning, f.Current())
	require.NoError(t, f.Fire(EventFinish))
	assert.Equal(t, StateFinished, f.Current())

	// 第二次完工是非法转移，状态保持不变
	assert.Error(t, f.Fire(EventFinish))
	assert.Equal(t, StateFinished, f.Current())
}

func TestInvalidTransitions(t *testing.T) {
	f := NewFSM("inst-2")
	assert.Error(t, f.Fire(EventFinish))
	assert.Equal(t, StateCreated, f.Current())
	require.NoError(t, f.Fire(EventStart))
	assert.Error(t, f.Fire(EventStart))
	assert.Equal(t, StateRunning, f.Current())
}

func TestRestore(t *testing.T) {
	f := Restore("inst-3", StateRunning)
	assert.Equal(t, "inst-3", f.TargetID)
	require.NoError(t, f.Fire(EventFinish))
	assert.Equal(t, StateFinished, f.Current())
}
