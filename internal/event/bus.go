package event

import (
	"sync"
	"time"

	"workstation-engine/internal/types"
)

// EventType 定义事件的类型
type EventType string

// 定义所有业务事件类型
const (
	ProcessStarted     EventType = "ProcessStarted"     // 工艺实例开工
	ProcessFinished    EventType = "ProcessFinished"    // 工艺实例完工
	ProcessRejected    EventType = "ProcessRejected"    // 手动请求被拒绝
	WorkstationChanged EventType = "WorkstationChanged" // 工作站资源发生变化
)

// Event 结构体定义了事件的数据负载
type Event struct {
	Type        EventType           // 事件类型
	Workstation types.WorkstationID // 关联的工作站
	ProcessID   string              // 工艺 ID
	ProcessType string              // 工艺类型
	InstanceID  string              // 实例 ID (仅开工、完工事件)
	Instigator  types.ActorID       // 发起者
	Duration    time.Duration       // 工艺时长 (仅开工、完工事件)
	Error       error               // 错误信息 (仅拒绝事件)
}

// Handler 是事件处理函数的签名
type Handler func(e Event)

// Bus 是一个简单的内存事件总线
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler // 存储事件类型到多个处理函数的映射
	inflight sync.WaitGroup
}

// NewBus 创建一个新的事件总线实例
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe 订阅一个特定类型的事件
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish 发布一个事件，所有订阅了该事件类型的处理器都将被调用
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// 遍历所有处理器并异步执行
	// 使用 goroutine 避免单个处理器的阻塞影响调度循环
	for _, handler := range b.handlers[e.Type] {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			h(e)
		}(handler)
	}
}

// Wait 等待所有已发布事件的处理器执行完毕
func (b *Bus) Wait() {
	b.inflight.Wait()
}
