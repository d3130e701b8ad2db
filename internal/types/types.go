package types

import "sort"

// WorkstationID 定义工作站 ID
type WorkstationID string

// ActorID 定义发起操作的主体 ID（玩家、机器人，或工作站自身）
type ActorID string

// 约定的槽位分类名称
const (
	CategoryInput       = "INPUT"
	CategoryOutput      = "OUTPUT"
	CategoryFluidInput  = "FLUID_INPUT"
	CategoryFluidOutput = "FLUID_OUTPUT"

	CategoryFluidContainerInput  = "FLUID_CONTAINER_INPUT"
	CategoryFluidContainerOutput = "FLUID_CONTAINER_OUTPUT"
)

// WakeUpActionID 是工作站处理完成定时器的动作 ID，每个工作站同一时间只有一个
const WakeUpActionID = "workstation:processing"

// ProcessTypeSupport 描述工作站对某一工艺类型的支持情况
type ProcessTypeSupport struct {
	MaxLevel  int  `mapstructure:"max_level" json:"max_level"` // 支持的最高工艺等级
	Automatic bool `mapstructure:"automatic" json:"automatic"` // 条件满足时是否自动开工
}

// SlotAssignment 描述一个分类占用的槽位
// 可以是连续区间 (Start, Count)，也可以是显式列表 Slots，显式列表优先
type SlotAssignment struct {
	Start int   `mapstructure:"start" json:"start"`
	Count int   `mapstructure:"count" json:"count"`
	Slots []int `mapstructure:"slots" json:"slots,omitempty"`
}

// Indices 按顺序返回该分类包含的槽位号
func (a SlotAssignment) Indices() []int {
	if len(a.Slots) > 0 {
		out := make([]int, len(a.Slots))
		copy(out, a.Slots)
		return out
	}
	out := make([]int, 0, a.Count)
	for i := 0; i < a.Count; i++ {
		out = append(out, a.Start+i)
	}
	return out
}

// SlotLayout 是分类名称到槽位的映射
type SlotLayout map[string]SlotAssignment

// Slots 返回某个分类的槽位列表，分类不存在时返回 nil
func (l SlotLayout) Slots(category string) []int {
	a, ok := l[category]
	if !ok {
		return nil
	}
	return a.Indices()
}

// Contains 判断槽位是否属于某个分类
func (l SlotLayout) Contains(category string, slot int) bool {
	for _, s := range l.Slots(category) {
		if s == slot {
			return true
		}
	}
	return false
}

// Categories 返回排好序的分类名称
func (l SlotLayout) Categories() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Actor 返回工作站自身作为操作者时的 ID
func (id WorkstationID) Actor() ActorID { return ActorID(id) }
