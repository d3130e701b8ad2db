// Package resource 定义工作站资源容器的接口，以及纯函数形式的槽位匹配算法。
//
// 容器本身（物品栏、流体槽）不在本包实现，这里只描述引擎需要的最小能力。
package resource

import (
	"fmt"
	"sort"

	"workstation-engine/internal/types"
)

// FluidEpsilon 是流体体积比较时的容差
const FluidEpsilon = 0.001

// Stack 表示一个槽位中的一叠离散物品
type Stack struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

func (s Stack) String() string { return fmt.Sprintf("%dx%s", s.Count, s.Kind) }

// Fluid 表示一个流体槽中的连续资源
type Fluid struct {
	Kind   string  `json:"kind"`
	Volume float64 `json:"volume"`
}

func (f Fluid) String() string { return fmt.Sprintf("%.1fmL %s", f.Volume, f.Kind) }

// ItemReader 只读访问工作站的物品槽
type ItemReader interface {
	ItemAt(ws types.WorkstationID, slot int) (Stack, bool)
	// CanStack 判断 item 能否整体并入已有的 into 物品堆
	CanStack(item, into Stack) bool
}

// ItemInventory 是引擎使用的物品容器接口
type ItemInventory interface {
	ItemReader
	// RemoveItems 从槽位移除 amount 个物品，返回被移除的物品
	RemoveItems(ws types.WorkstationID, actor types.ActorID, slot, amount int) (Stack, bool)
	// GiveItem 把物品放入候选槽位，优先堆叠到兼容的物品堆，其次空槽
	GiveItem(ws types.WorkstationID, actor types.ActorID, item Stack, slots []int) bool
}

// FluidReader 只读访问工作站的流体槽
type FluidReader interface {
	FluidAt(ws types.WorkstationID, slot int) (Fluid, bool)
	// CanMix 判断 fluid 能否并入已有的 into 流体
	CanMix(fluid, into Fluid) bool
}

// FluidInventory 是引擎使用的流体容器接口
type FluidInventory interface {
	FluidReader
	RemoveFluid(ws types.WorkstationID, actor types.ActorID, slot int, volume float64) (Fluid, bool)
	AddFluid(ws types.WorkstationID, actor types.ActorID, fluid Fluid, slots []int) bool
}

// Reservation 是槽位到物品数量的预留
type Reservation map[int]int

// Total 返回预留的物品总数
func (r Reservation) Total() int {
	n := 0
	for _, v := range r {
		n += v
	}
	return n
}

// Merge 把另一份预留累加进来
func (r Reservation) Merge(other Reservation) {
	for slot, v := range other {
		r[slot] += v
	}
}

// Slots 返回排好序的槽位号
func (r Reservation) Slots() []int {
	return sortedKeys(r)
}

// FluidReservation 是槽位到流体体积的预留
type FluidReservation map[int]float64

// Total 返回预留的流体总体积
func (r FluidReservation) Total() float64 {
	var n float64
	for _, v := range r {
		n += v
	}
	return n
}

// Merge 把另一份预留累加进来
func (r FluidReservation) Merge(other FluidReservation) {
	for slot, v := range other {
		r[slot] += v
	}
}

// Slots 返回排好序的槽位号
func (r FluidReservation) Slots() []int {
	return sortedKeys(r)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
