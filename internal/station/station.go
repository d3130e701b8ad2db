package station

import (
	"fmt"
	"sort"
	"sync"

	"workstation-engine/internal/types"
)

// Workstation 描述一台工作站：槽位布局和所支持的工艺类型
type Workstation struct {
	ID        types.WorkstationID
	Layout    types.SlotLayout
	Processes map[string]types.ProcessTypeSupport // Key 为工艺类型名称
}

// NewWorkstation 创建一个工作站定义
func NewWorkstation(id types.WorkstationID, layout types.SlotLayout, processes map[string]types.ProcessTypeSupport) *Workstation {
	if layout == nil {
		layout = types.SlotLayout{}
	}
	if processes == nil {
		processes = map[string]types.ProcessTypeSupport{}
	}
	return &Workstation{ID: id, Layout: layout, Processes: processes}
}

// ProcessTypes 返回所有支持的工艺类型，按名称排序以保证遍历顺序稳定
func (w *Workstation) ProcessTypes() []string {
	names := make([]string, 0, len(w.Processes))
	for name := range w.Processes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AutomaticTypes 返回可以自动开工的工艺类型
func (w *Workstation) AutomaticTypes() []string {
	var names []string
	for _, name := range w.ProcessTypes() {
		if w.Processes[name].Automatic {
			names = append(names, name)
		}
	}
	return names
}

// HasAutomatic 判断工作站是否至少支持一种自动工艺
func (w *Workstation) HasAutomatic() bool {
	for _, p := range w.Processes {
		if p.Automatic {
			return true
		}
	}
	return false
}

// Supports 判断工作站是否支持某工艺类型的某一等级
func (w *Workstation) Supports(processType string, level int) bool {
	p, ok := w.Processes[processType]
	return ok && level <= p.MaxLevel
}

// IsSelf 判断操作者是否就是工作站自身（自动加工时的发起者）
func (w *Workstation) IsSelf(actor types.ActorID) bool {
	return actor == w.ID.Actor()
}

// Directory 是所有工作站定义的注册表
type Directory struct {
	mu       sync.RWMutex
	stations map[types.WorkstationID]*Workstation
}

// NewDirectory 创建一个空的工作站注册表
func NewDirectory() *Directory {
	return &Directory{stations: make(map[types.WorkstationID]*Workstation)}
}

// Add 注册一个工作站，ID 重复时返回错误
func (d *Directory) Add(w *Workstation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.stations[w.ID]; exists {
		return fmt.Errorf("workstation %s already registered", w.ID)
	}
	d.stations[w.ID] = w
	return nil
}

// Remove 注销工作站
func (d *Directory) Remove(id types.WorkstationID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.stations, id)
}

// Get 按 ID 查找工作站
func (d *Directory) Get(id types.WorkstationID) (*Workstation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.stations[id]
	return w, ok
}

// All 返回按 ID 排序的所有工作站
func (d *Directory) All() []*Workstation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Workstation, 0, len(d.stations))
	for _, w := range d.stations {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
