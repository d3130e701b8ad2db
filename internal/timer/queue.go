package timer

import (
	"container/heap"
	"sync"
	"time"

	"workstation-engine/internal/types"
)

// Key 唯一标识一个延迟动作：同一工作站的同一动作同时只保留一个
type Key struct {
	Workstation types.WorkstationID
	Action      string
}

// item 是堆中的元素
type item struct {
	key   Key
	at    time.Time
	seq   uint64 // 同一时刻按调度顺序触发
	index int    // 元素在堆中的索引，Cancel 时用于 heap.Remove
}

// actionHeap 实现了 heap.Interface，是按触发时间排序的最小堆
type actionHeap []*item

func (h actionHeap) Len() int { return len(h) }

func (h actionHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h actionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *actionHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // 避免内存泄漏
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue 是并发安全的延迟动作队列
type Queue struct {
	mu    sync.Mutex
	heap  actionHeap
	byKey map[Key]*item
	seq   uint64
}

// NewQueue 创建空队列
func NewQueue() *Queue {
	return &Queue{byKey: make(map[Key]*item)}
}

// Schedule 在 at 时刻触发动作，已存在的同名动作会被替换
func (q *Queue) Schedule(ws types.WorkstationID, action string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := Key{Workstation: ws, Action: action}
	if old, ok := q.byKey[key]; ok {
		heap.Remove(&q.heap, old.index)
	}
	q.seq++
	it := &item{key: key, at: at, seq: q.seq}
	heap.Push(&q.heap, it)
	q.byKey[key] = it
}

// Cancel 取消动作，动作不存在时返回 false
func (q *Queue) Cancel(ws types.WorkstationID, action string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := Key{Workstation: ws, Action: action}
	it, ok := q.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, it.index)
	delete(q.byKey, key)
	return true
}

// Scheduled 返回动作的触发时间
func (q *Queue) Scheduled(ws types.WorkstationID, action string) (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.byKey[Key{Workstation: ws, Action: action}]
	if !ok {
		return time.Time{}, false
	}
	return it.at, true
}

// Next 返回最早的触发时间
func (q *Queue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return time.Time{}, false
	}
	return q.heap[0].at, true
}

// PopDue 按触发顺序取出所有 at <= now 的动作
func (q *Queue) PopDue(now time.Time) []Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []Key
	for len(q.heap) > 0 && !q.heap[0].at.After(now) {
		it := heap.Pop(&q.heap).(*item)
		delete(q.byKey, it.key)
		due = append(due, it.key)
	}
	return due
}

// Len 返回队列中的动作数量
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
