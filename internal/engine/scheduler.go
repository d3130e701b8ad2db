package engine

import (
	"context"
	"time"
)

// Tick 触发所有到期的唤醒定时器，并按间隔执行兜底检查。
// now 为模拟时间，通常取自 Authority 的时钟。
func (a *Authority) Tick(now time.Time) {
	for _, key := range a.timers.PopDue(now) {
		a.wakeUp(key.Workstation, key.Action, now)
	}
	if a.revivalDue(now) {
		a.Revive()
	}
}

func (a *Authority) revivalDue(now time.Time) bool {
	a.revivalMu.Lock()
	defer a.revivalMu.Unlock()
	if a.revivalInterval <= 0 {
		return false
	}
	if !a.lastRevival.IsZero() && now.Sub(a.lastRevival) < a.revivalInterval {
		return false
	}
	a.lastRevival = now
	return true
}

// Run 启动调度循环，每个 tick 用时钟的当前时间驱动 Tick，直到 ctx 取消
func (a *Authority) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	a.logger.Info("调度循环启动", "tick", tick)
	a.Tick(a.clock.Now())
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("调度循环停止")
			return
		case <-ticker.C:
			a.Tick(a.clock.Now())
		}
	}
}

// Pending 返回待检查队列的长度
func (a *Authority) Pending() int {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	return len(a.pending)
}
