package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// ErrInvalidTemplate 表示模板未通过结构校验
var ErrInvalidTemplate = errors.New("invalid process template")

// TemplateError 携带模板 ID 和所有结构错误
type TemplateError struct {
	ID       string
	Problems []string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("process %s: %s", e.ID, strings.Join(e.Problems, "; "))
}

func (e *TemplateError) Unwrap() error { return ErrInvalidTemplate }

// Description 是整个工艺的描述
type Description struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Name       string   `json:"name,omitempty"`
	Level      int      `json:"level"`
	Inputs     []string `json:"inputs"`
	Outputs    []string `json:"outputs"`
	Complexity int      `json:"complexity"`
}

// Process 是编译好的工艺流水线
type Process struct {
	id          string
	processType string
	name        string
	level       int
	env         Env

	parts      []Part
	validators []Validator
	reservers  []Reserver
	durations  []DurationProvider
	modifiers  []DurationModifier
	starters   []Starter
	finishers  []Finisher
	itemSlots  []ItemSlotValidator
	fluidSlots []FluidSlotValidator
	describers []Describer
}

func unwrap(p Part) Part {
	if s, ok := p.(*sortOverride); ok {
		return s.Part
	}
	return p
}

func orderOf(p Part) int {
	if o, ok := p.(Ordered); ok {
		return o.SortOrder()
	}
	return 0
}

// Compile 把模板编译为流水线：创建部件、按排序权重稳定排序、按能力分组并做结构校验
func Compile(t Template, f *Factory) (*Process, error) {
	p := &Process{id: t.ID, processType: t.Type, name: t.Name, level: t.Level, env: f.Env()}
	var problems []string
	if t.ID == "" {
		problems = append(problems, "process id is empty")
	}
	if t.Type == "" {
		problems = append(problems, "process type is empty")
	}
	if len(t.Parts) == 0 {
		problems = append(problems, "process declares no parts")
	}
	for _, spec := range t.Parts {
		part, err := f.Build(spec)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		p.parts = append(p.parts, part)
	}
	sort.SliceStable(p.parts, func(i, j int) bool { return orderOf(p.parts[i]) < orderOf(p.parts[j]) })

	for _, wrapped := range p.parts {
		part := unwrap(wrapped)
		if v, ok := part.(Validator); ok {
			p.validators = append(p.validators, v)
		}
		if r, ok := part.(Reserver); ok {
			p.reservers = append(p.reservers, r)
		}
		if d, ok := part.(DurationProvider); ok {
			p.durations = append(p.durations, d)
		}
		if m, ok := part.(DurationModifier); ok {
			p.modifiers = append(p.modifiers, m)
		}
		if s, ok := part.(Starter); ok {
			p.starters = append(p.starters, s)
		}
		if fin, ok := part.(Finisher); ok {
			p.finishers = append(p.finishers, fin)
		}
		if v, ok := part.(ItemSlotValidator); ok {
			p.itemSlots = append(p.itemSlots, v)
		}
		if v, ok := part.(FluidSlotValidator); ok {
			p.fluidSlots = append(p.fluidSlots, v)
		}
		if d, ok := part.(Describer); ok {
			p.describers = append(p.describers, d)
		}
	}

	problems = append(problems, p.ValidateStructure()...)
	if len(problems) > 0 {
		return nil, &TemplateError{ID: t.ID, Problems: problems}
	}
	return p, nil
}

func (p *Process) ID() string   { return p.id }
func (p *Process) Type() string { return p.processType }
func (p *Process) Name() string { return p.name }
func (p *Process) Level() int   { return p.level }

// Parts 返回排序后的部件种类，用于日志和调试
func (p *Process) Parts() []string {
	kinds := make([]string, 0, len(p.parts))
	for _, part := range p.parts {
		kinds = append(kinds, part.Kind())
	}
	return kinds
}

// ValidateStructure 汇总所有部件的结构错误
func (p *Process) ValidateStructure() []string {
	var problems []string
	for _, v := range p.validators {
		problems = append(problems, v.Validate()...)
	}
	return problems
}

func (p *Process) prepare(exec *ExecContext) {
	exec.ProcessType = p.processType
	exec.items = p.env.Items
	exec.fluids = p.env.Fluids
	ws := exec.Workstation
	exec.acceptItem = func(slot int, item resource.Stack) bool {
		return !p.IsResponsibleForItemSlot(ws, slot) || p.IsValidForItemSlot(ws, slot, exec.Instigator, item)
	}
	exec.acceptFluid = func(slot int, fluid resource.Fluid) bool {
		return !p.IsResponsibleForFluidSlot(ws, slot) || p.IsValidForFluidSlot(ws, slot, exec.Instigator, fluid)
	}
}

// Reserve 让所有部件计算预留并写入 exec.Scratch。
// 任意部件失败（包括 panic）都视为当前不可开工，返回包装了 ErrNotViable 的错误。
func (p *Process) Reserve(exec *ExecContext) (err error) {
	p.prepare(exec)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: part panicked during reservation: %v", ErrNotViable, r)
		}
	}()
	for _, r := range p.reservers {
		if rerr := r.Reserve(exec); rerr != nil {
			if errors.Is(rerr, ErrNotViable) {
				return rerr
			}
			return fmt.Errorf("%w: %v", ErrNotViable, rerr)
		}
	}
	return nil
}

// IsInvalidToStart 用一次性的 Scratch 检查工艺能否开工，不修改任何真实资源
func (p *Process) IsInvalidToStart(instigator types.ActorID, ws *station.Workstation) bool {
	return p.Reserve(NewExecContext(instigator, ws, nil)) != nil
}

// Duration 返回各部件时长之和，再依次交给时长修正部件处理
func (p *Process) Duration(exec *ExecContext) time.Duration {
	p.prepare(exec)
	var total time.Duration
	for _, d := range p.durations {
		total += d.Duration(exec)
	}
	for _, m := range p.modifiers {
		total = m.ModifyDuration(exec, total)
	}
	if total < 0 {
		return 0
	}
	return total
}

// StartExecution 按顺序让部件消耗预留资源
func (p *Process) StartExecution(exec *ExecContext) {
	p.prepare(exec)
	for _, s := range p.starters {
		p.guard(exec, "start", func() { s.Start(exec) })
	}
}

// FinishExecution 按顺序让部件产出资源
func (p *Process) FinishExecution(exec *ExecContext) {
	p.prepare(exec)
	for _, f := range p.finishers {
		p.guard(exec, "finish", func() { f.Finish(exec) })
	}
}

// guard 防止单个部件的 panic 中断整个模拟循环
func (p *Process) guard(exec *ExecContext, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger().Error("工艺部件执行异常", "process_id", p.id, "phase", phase,
				"workstation", exec.Workstation.ID, "panic", r)
		}
	}()
	fn()
}

func (p *Process) logger() *slog.Logger {
	return p.env.log()
}

// IsResponsibleForItemSlot 判断是否有部件声明了该物品槽
func (p *Process) IsResponsibleForItemSlot(ws *station.Workstation, slot int) bool {
	for _, v := range p.itemSlots {
		if v.ResponsibleForItemSlot(ws, slot) {
			return true
		}
	}
	return false
}

// IsValidForItemSlot 只要有一个声明该槽位的部件接受该物品即为合法
func (p *Process) IsValidForItemSlot(ws *station.Workstation, slot int, actor types.ActorID, item resource.Stack) bool {
	for _, v := range p.itemSlots {
		if v.ResponsibleForItemSlot(ws, slot) && v.AcceptsItem(ws, slot, actor, item) {
			return true
		}
	}
	return false
}

// IsResponsibleForFluidSlot 判断是否有部件声明了该流体槽
func (p *Process) IsResponsibleForFluidSlot(ws *station.Workstation, slot int) bool {
	for _, v := range p.fluidSlots {
		if v.ResponsibleForFluidSlot(ws, slot) {
			return true
		}
	}
	return false
}

// IsValidForFluidSlot 只要有一个声明该槽位的部件接受该流体即为合法
func (p *Process) IsValidForFluidSlot(ws *station.Workstation, slot int, actor types.ActorID, fluid resource.Fluid) bool {
	for _, v := range p.fluidSlots {
		if v.ResponsibleForFluidSlot(ws, slot) && v.AcceptsFluid(ws, slot, actor, fluid) {
			return true
		}
	}
	return false
}

// Describe 汇总所有部件的描述
func (p *Process) Describe() Description {
	d := Description{ID: p.id, Type: p.processType, Name: p.name, Level: p.level, Inputs: []string{}, Outputs: []string{}}
	for _, desc := range p.describers {
		pd := desc.Describe()
		d.Inputs = append(d.Inputs, pd.Inputs...)
		d.Outputs = append(d.Outputs, pd.Outputs...)
		d.Complexity += pd.Complexity
	}
	return d
}
