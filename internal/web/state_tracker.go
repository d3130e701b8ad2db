package web

import (
	"sort"
	"sync"
	"time"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/types"
)

// RunningProcess 是 UI 展示用的进行中工艺
type RunningProcess struct {
	InstanceID  string        `json:"instance_id"`
	ProcessID   string        `json:"process_id"`
	ProcessType string        `json:"process_type"`
	Instigator  types.ActorID `json:"instigator"`
	Duration    time.Duration `json:"duration"`
}

// WorkstationState 定义了用于 UI 展示的工作站状态
type WorkstationState struct {
	ID       types.WorkstationID       `json:"id"`
	Running  map[string]RunningProcess `json:"running"` // Key 为工艺类型
	Items    map[int]resource.Stack    `json:"items,omitempty"`
	Fluids   map[int]resource.Fluid    `json:"fluids,omitempty"`
	Finished int                       `json:"finished"`
	Rejected int                       `json:"rejected"`
}

// GlobalState 代表所有工作站的实时状态快照
type GlobalState struct {
	Workstations map[types.WorkstationID]WorkstationState `json:"workstations"`
}

// InventoryView 提供工作站槽位内容的快照
type InventoryView interface {
	Items(ws types.WorkstationID) map[int]resource.Stack
	Fluids(ws types.WorkstationID) map[int]resource.Fluid
}

// StateTracker 负责追踪所有工作站的实时状态，并通知前端更新
type StateTracker struct {
	mu    sync.RWMutex
	state GlobalState
	hub   *Hub
	// lastFinished 记录每个工作站每种工艺最近完工的实例，事件乱序到达时用于忽略过期的开工事件
	lastFinished map[types.WorkstationID]map[string]string
}

// NewStateTracker 创建一个新的 StateTracker 实例，hub 可以为空
func NewStateTracker(hub *Hub) *StateTracker {
	st := &StateTracker{
		state:        GlobalState{Workstations: make(map[types.WorkstationID]WorkstationState)},
		hub:          hub,
		lastFinished: make(map[types.WorkstationID]map[string]string),
	}
	if hub != nil {
		hub.SetSnapshot(func() any { return st.GetStateSnapshot() })
	}
	return st
}

// AddWorkstation 将工作站添加到状态追踪器中
func (st *StateTracker) AddWorkstation(id types.WorkstationID) {
	st.update(id, func(*WorkstationState) {})
}

// ProcessStarted 记录工艺开工。时长为 0 的工艺会紧接着收到完工。
func (st *StateTracker) ProcessStarted(id types.WorkstationID, p RunningProcess) {
	st.update(id, func(ws *WorkstationState) {
		if p.Duration > 0 && st.lastFinished[id][p.ProcessType] != p.InstanceID {
			ws.Running[p.ProcessType] = p
		}
	})
}

// ProcessFinished 记录工艺完工
func (st *StateTracker) ProcessFinished(id types.WorkstationID, instanceID, processType string) {
	st.update(id, func(ws *WorkstationState) {
		if r, ok := ws.Running[processType]; ok && r.InstanceID == instanceID {
			delete(ws.Running, processType)
		}
		if st.lastFinished[id] == nil {
			st.lastFinished[id] = make(map[string]string)
		}
		st.lastFinished[id][processType] = instanceID
		ws.Finished++
	})
}

// ProcessRejected 记录被拒绝的手动请求
func (st *StateTracker) ProcessRejected(id types.WorkstationID) {
	st.update(id, func(ws *WorkstationState) { ws.Rejected++ })
}

// UpdateInventory 刷新工作站的槽位内容
func (st *StateTracker) UpdateInventory(id types.WorkstationID, inv InventoryView) {
	items, fluids := inv.Items(id), inv.Fluids(id)
	st.update(id, func(ws *WorkstationState) {
		ws.Items = items
		ws.Fluids = fluids
	})
}

// update 修改单个工作站的状态，并向所有客户端广播最新的全局状态
func (st *StateTracker) update(id types.WorkstationID, fn func(ws *WorkstationState)) {
	st.mu.Lock()
	ws, ok := st.state.Workstations[id]
	if !ok {
		ws = WorkstationState{ID: id, Running: make(map[string]RunningProcess)}
	}
	fn(&ws)
	st.state.Workstations[id] = ws
	st.mu.Unlock()

	if st.hub != nil {
		st.hub.BroadcastState(st.GetStateSnapshot())
	}
}

// GetStateSnapshot 返回当前全局状态的一个深拷贝副本
// 用于新客户端连接时获取一次全量数据
func (st *StateTracker) GetStateSnapshot() GlobalState {
	st.mu.RLock()
	defer st.mu.RUnlock()

	// 创建深拷贝以避免并发问题
	newState := GlobalState{Workstations: make(map[types.WorkstationID]WorkstationState, len(st.state.Workstations))}
	for id, ws := range st.state.Workstations {
		cp := ws
		cp.Running = make(map[string]RunningProcess, len(ws.Running))
		for k, v := range ws.Running {
			cp.Running[k] = v
		}
		cp.Items = copyMap(ws.Items)
		cp.Fluids = copyMap(ws.Fluids)
		newState.Workstations[id] = cp
	}
	return newState
}

// Workstation 返回单个工作站的状态
func (st *StateTracker) Workstation(id types.WorkstationID) (WorkstationState, bool) {
	ws, ok := st.GetStateSnapshot().Workstations[id]
	return ws, ok
}

// IDs 返回已追踪的工作站 ID
func (st *StateTracker) IDs() []types.WorkstationID {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]types.WorkstationID, 0, len(st.state.Workstations))
	for id := range st.state.Workstations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyMap[V any](m map[int]V) map[int]V {
	if m == nil {
		return nil
	}
	out := make(map[int]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
