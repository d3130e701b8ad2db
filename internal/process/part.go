// Package process 把工艺模板编译为由可插拔部件组成的流水线。
//
// 每个部件只实现自己关心的能力接口（结构校验、预留、时长、开工、完工、槽位校验、描述），
// 流水线按阶段只遍历对应能力的部件切片。
package process

import (
	"errors"
	"log/slog"
	"time"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// ErrNotViable 表示工艺当前不满足开工条件，这是正常结果而不是故障
var ErrNotViable = errors.New("process is not viable right now")

// Part 是工艺部件的最小接口
type Part interface {
	Kind() string
}

// Ordered 部件声明自己的排序权重：消耗类为负，产出类为正
type Ordered interface {
	SortOrder() int
}

// Validator 在编译期做结构校验，返回错误描述列表
type Validator interface {
	Validate() []string
}

// Reserver 计算开工所需的预留，只允许写入 Scratch
type Reserver interface {
	Reserve(exec *ExecContext) error
}

// DurationProvider 贡献工艺时长，只读
type DurationProvider interface {
	Duration(exec *ExecContext) time.Duration
}

// DurationModifier 在所有部件时长求和之后对总时长进行缩放或追加
type DurationModifier interface {
	ModifyDuration(exec *ExecContext, total time.Duration) time.Duration
}

// Starter 在开工时消耗预留的资源
type Starter interface {
	Start(exec *ExecContext)
}

// Finisher 在完工时产出资源
type Finisher interface {
	Finish(exec *ExecContext)
}

// ItemSlotValidator 决定外部放入物品槽的物品是否合法
type ItemSlotValidator interface {
	ResponsibleForItemSlot(ws *station.Workstation, slot int) bool
	AcceptsItem(ws *station.Workstation, slot int, actor types.ActorID, item resource.Stack) bool
}

// FluidSlotValidator 决定外部注入流体槽的流体是否合法
type FluidSlotValidator interface {
	ResponsibleForFluidSlot(ws *station.Workstation, slot int) bool
	AcceptsFluid(ws *station.Workstation, slot int, actor types.ActorID, fluid resource.Fluid) bool
}

// Describer 为展示层提供输入输出的文字描述
type Describer interface {
	Describe() PartDescription
}

// PartDescription 是单个部件的描述
type PartDescription struct {
	Inputs     []string
	Outputs    []string
	Complexity int
}

// Env 是部件运行依赖的外部协作者，由工厂注入
type Env struct {
	Items  resource.ItemInventory
	Fluids resource.FluidInventory
	// KnownFluid 为空时不校验流体种类
	KnownFluid func(kind string) bool
	Logger     *slog.Logger
}

// ExecContext 是一次工艺执行（或一次校验）的上下文
type ExecContext struct {
	Instigator  types.ActorID
	Workstation *station.Workstation
	Scratch     *Scratch
	ProcessType string
	Now         time.Time

	acceptItem  resource.ItemFilter
	acceptFluid resource.FluidFilter
	items       resource.ItemReader
	fluids      resource.FluidReader
}

// NewExecContext 创建执行上下文，scratch 为空时新建一个
func NewExecContext(instigator types.ActorID, ws *station.Workstation, scratch *Scratch) *ExecContext {
	if scratch == nil {
		scratch = NewScratch()
	}
	return &ExecContext{Instigator: instigator, Workstation: ws, Scratch: scratch}
}

// Automatic 判断本次执行是否由工作站自身发起
func (e *ExecContext) Automatic() bool {
	return e.Workstation != nil && e.Workstation.IsSelf(e.Instigator)
}

// AcceptItem 是流水线注入的物品槽过滤器
func (e *ExecContext) AcceptItem(slot int, item resource.Stack) bool {
	if e.acceptItem == nil {
		return true
	}
	return e.acceptItem(slot, item)
}

// AcceptFluid 是流水线注入的流体槽过滤器
func (e *ExecContext) AcceptFluid(slot int, fluid resource.Fluid) bool {
	if e.acceptFluid == nil {
		return true
	}
	return e.acceptFluid(slot, fluid)
}

func (e Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
