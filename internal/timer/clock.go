// Package timer 提供模拟时钟和可取消的延迟动作队列。
package timer

import (
	"sync"
	"time"
)

// Clock 提供当前时间
type Clock interface {
	Now() time.Time
}

// SystemClock 使用墙上时间
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock 是手动推进的时钟，用于测试和离线模拟
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建一个从 start 开始的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 把时钟向前推进 d，返回推进后的时间
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set 把时钟设置为指定时间
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
