package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestQueuePopsInTimeOrder(t *testing.T) {
	q := NewQueue()
	q.Schedule("b", "wake", epoch.Add(3*time.Second))
	q.Schedule("a", "wake", epoch.Add(time.Second))
	q.Schedule("c", "wake", epoch.Add(time.Second))

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Second), next)

	due := q.PopDue(epoch.Add(2 * time.Second))
	assert.Equal(t, []Key{{"a", "wake"}, {"c", "wake"}}, due)
	assert.Equal(t, 1, q.Len())
	assert.Empty(t, q.PopDue(epoch.Add(2*time.Second)))
}

func TestScheduleReplacesExistingAction(t *testing.T) {
	q := NewQueue()
	q.Schedule("a", "wake", epoch.Add(time.Second))
	q.Schedule("a", "wake", epoch.Add(5*time.Second))

	assert.Equal(t, 1, q.Len())
	at, ok := q.Scheduled("a", "wake")
	require.True(t, ok)
	assert.Equal(t, epoch.Add(5*time.Second), at)
	assert.Empty(t, q.PopDue(epoch.Add(2*time.Second)))
}

func TestCancel(t *testing.T) {
	q := NewQueue()
	q.Schedule("a", "wake", epoch)
	q.Schedule("b", "wake", epoch)

	assert.True(t, q.Cancel("a", "wake"))
	assert.False(t, q.Cancel("a", "wake"))
	assert.Equal(t, []Key{{"b", "wake"}}, q.PopDue(epoch))
	_, ok := q.Next()
	assert.False(t, ok)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Minute), c.Advance(time.Minute))
	c.Set(epoch)
	assert.Equal(t, epoch, c.Now())
}
