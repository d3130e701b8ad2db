// Package inventory 提供一个内存版的工作站物品栏与流体槽实现，
// 供模拟器和测试使用，实现 resource 包定义的容器接口。
package inventory

import (
	"errors"
	"sync"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
)

var (
	// ErrRejected 表示工作站拒绝了这次放入
	ErrRejected = errors.New("insertion rejected by workstation")
	// ErrNoRoom 表示槽位放不下
	ErrNoRoom = errors.New("no room in slot")
)

// ItemValidator 在外部放入物品前被调用，返回 false 表示拒绝
type ItemValidator func(ws types.WorkstationID, slot int, actor types.ActorID, item resource.Stack) bool

// FluidValidator 在外部放入流体前被调用
type FluidValidator func(ws types.WorkstationID, slot int, actor types.ActorID, fluid resource.Fluid) bool

// ChangeListener 在槽位内容变化后被调用（锁外调用）
type ChangeListener func(ws types.WorkstationID)

// Memory 是线程安全的内存容器
type Memory struct {
	mu        sync.RWMutex
	items     map[types.WorkstationID]map[int]resource.Stack
	fluids    map[types.WorkstationID]map[int]resource.Fluid
	maxStack  int
	maxVolume float64

	itemValidator  ItemValidator
	fluidValidator FluidValidator
	listeners      []ChangeListener
}

// NewMemory 创建内存容器，maxStack 为单槽物品上限，maxVolume 为单槽流体上限
func NewMemory(maxStack int, maxVolume float64) *Memory {
	if maxStack <= 0 {
		maxStack = 99
	}
	if maxVolume <= 0 {
		maxVolume = 1000
	}
	return &Memory{
		items:     make(map[types.WorkstationID]map[int]resource.Stack),
		fluids:    make(map[types.WorkstationID]map[int]resource.Fluid),
		maxStack:  maxStack,
		maxVolume: maxVolume,
	}
}

// SetItemValidator 设置外部放入物品时的校验函数
func (m *Memory) SetItemValidator(v ItemValidator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemValidator = v
}

// SetFluidValidator 设置外部放入流体时的校验函数
func (m *Memory) SetFluidValidator(v FluidValidator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fluidValidator = v
}

// OnChange 注册槽位变化监听器
func (m *Memory) OnChange(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Memory) notify(ws types.WorkstationID) {
	m.mu.RLock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l(ws)
	}
}

// ItemAt 返回槽位中的物品
func (m *Memory) ItemAt(ws types.WorkstationID, slot int) (resource.Stack, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[ws][slot]
	if !ok || s.Count <= 0 {
		return resource.Stack{}, false
	}
	return s, true
}

// CanStack 同种类且合并后不超过上限才能堆叠
func (m *Memory) CanStack(item, into resource.Stack) bool {
	return item.Kind == into.Kind && item.Count+into.Count <= m.maxStack
}

// RemoveItems 从槽位取出物品，数量不足时不做任何修改
func (m *Memory) RemoveItems(ws types.WorkstationID, actor types.ActorID, slot, amount int) (resource.Stack, bool) {
	m.mu.Lock()
	s, ok := m.items[ws][slot]
	if !ok || amount <= 0 || s.Count < amount {
		m.mu.Unlock()
		return resource.Stack{}, false
	}
	s.Count -= amount
	if s.Count == 0 {
		delete(m.items[ws], slot)
	} else {
		m.items[ws][slot] = s
	}
	m.mu.Unlock()
	m.notify(ws)
	return resource.Stack{Kind: s.Kind, Count: amount}, true
}

// GiveItem 把物品整体放入候选槽位：先补满兼容的物品堆，再使用空槽。
// 放不下全部数量时不做任何修改并返回 false。
func (m *Memory) GiveItem(ws types.WorkstationID, actor types.ActorID, item resource.Stack, slots []int) bool {
	if item.Count <= 0 {
		return true
	}
	m.mu.Lock()
	placed := m.place(ws, item, slots)
	m.mu.Unlock()
	if placed {
		m.notify(ws)
	}
	return placed
}

func (m *Memory) place(ws types.WorkstationID, item resource.Stack, slots []int) bool {
	bucket := m.items[ws]
	plan := make(map[int]int)
	remaining := item.Count
	for _, slot := range slots {
		if s, ok := bucket[slot]; ok && s.Kind == item.Kind && s.Count < m.maxStack {
			n := min(m.maxStack-s.Count, remaining)
			plan[slot] += n
			remaining -= n
			if remaining == 0 {
				break
			}
		}
	}
	for _, slot := range slots {
		if remaining == 0 {
			break
		}
		if _, ok := bucket[slot]; !ok {
			n := min(m.maxStack, remaining)
			plan[slot] += n
			remaining -= n
		}
	}
	if remaining > 0 {
		return false
	}
	if bucket == nil {
		bucket = make(map[int]resource.Stack)
		m.items[ws] = bucket
	}
	for slot, n := range plan {
		s := bucket[slot]
		bucket[slot] = resource.Stack{Kind: item.Kind, Count: s.Count + n}
	}
	return true
}

// Put 是外部（玩家、传送带）向指定槽位放入物品的入口，会经过工作站校验
func (m *Memory) Put(ws types.WorkstationID, actor types.ActorID, slot int, item resource.Stack) error {
	m.mu.RLock()
	validator := m.itemValidator
	m.mu.RUnlock()
	if validator != nil && !validator(ws, slot, actor, item) {
		return ErrRejected
	}
	if !m.GiveItem(ws, actor, item, []int{slot}) {
		return ErrNoRoom
	}
	return nil
}

// Items 返回工作站所有物品槽的快照
func (m *Memory) Items(ws types.WorkstationID) map[int]resource.Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]resource.Stack, len(m.items[ws]))
	for slot, s := range m.items[ws] {
		out[slot] = s
	}
	return out
}

// FluidAt 返回流体槽中的流体
func (m *Memory) FluidAt(ws types.WorkstationID, slot int) (resource.Fluid, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fluids[ws][slot]
	if !ok || f.Volume <= resource.FluidEpsilon {
		return resource.Fluid{}, false
	}
	return f, true
}

// CanMix 同种流体且不超过容量才能合并
func (m *Memory) CanMix(fluid, into resource.Fluid) bool {
	return fluid.Kind == into.Kind && fluid.Volume+into.Volume <= m.maxVolume+resource.FluidEpsilon
}

// RemoveFluid 从流体槽取出指定体积
func (m *Memory) RemoveFluid(ws types.WorkstationID, actor types.ActorID, slot int, volume float64) (resource.Fluid, bool) {
	m.mu.Lock()
	f, ok := m.fluids[ws][slot]
	if !ok || volume <= 0 || f.Volume+resource.FluidEpsilon < volume {
		m.mu.Unlock()
		return resource.Fluid{}, false
	}
	f.Volume -= volume
	if f.Volume <= resource.FluidEpsilon {
		delete(m.fluids[ws], slot)
	} else {
		m.fluids[ws][slot] = f
	}
	m.mu.Unlock()
	m.notify(ws)
	return resource.Fluid{Kind: f.Kind, Volume: volume}, true
}

// AddFluid 把流体整体放入第一个能容纳它的槽位
func (m *Memory) AddFluid(ws types.WorkstationID, actor types.ActorID, fluid resource.Fluid, slots []int) bool {
	if fluid.Volume <= resource.FluidEpsilon {
		return true
	}
	m.mu.Lock()
	bucket := m.fluids[ws]
	if bucket == nil {
		bucket = make(map[int]resource.Fluid)
		m.fluids[ws] = bucket
	}
	placed := false
	for _, slot := range slots {
		existing, ok := bucket[slot]
		if !ok && fluid.Volume <= m.maxVolume+resource.FluidEpsilon {
			bucket[slot] = fluid
			placed = true
			break
		}
		if ok && m.CanMix(fluid, existing) {
			existing.Volume += fluid.Volume
			bucket[slot] = existing
			placed = true
			break
		}
	}
	m.mu.Unlock()
	if placed {
		m.notify(ws)
	}
	return placed
}

// PutFluid 是外部向指定流体槽注入流体的入口，会经过工作站校验
func (m *Memory) PutFluid(ws types.WorkstationID, actor types.ActorID, slot int, fluid resource.Fluid) error {
	m.mu.RLock()
	validator := m.fluidValidator
	m.mu.RUnlock()
	if validator != nil && !validator(ws, slot, actor, fluid) {
		return ErrRejected
	}
	if !m.AddFluid(ws, actor, fluid, []int{slot}) {
		return ErrNoRoom
	}
	return nil
}

// Fluids 返回工作站所有流体槽的快照
func (m *Memory) Fluids(ws types.WorkstationID) map[int]resource.Fluid {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]resource.Fluid, len(m.fluids[ws]))
	for slot, f := range m.fluids[ws] {
		out[slot] = f
	}
	return out
}
