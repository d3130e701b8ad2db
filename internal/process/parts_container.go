package process

import (
	"fmt"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// containerSlotKey 是 Scratch 中记录选中容器槽位的键
const containerSlotKey = "fluid_container_fill.slot"

// FluidContainerFillPart 把 FLUID_CONTAINER_INPUT 中的满容器倒入 FLUID_INPUT 流体槽，
// 空容器放入 FLUID_CONTAINER_OUTPUT。预留阶段只选定一个容器槽位。
type FluidContainerFillPart struct {
	containers []FluidContainer
	env        Env
}

// NewFluidContainerFillPart 创建容器倒料部件
func NewFluidContainerFillPart(containers []FluidContainer, env Env) *FluidContainerFillPart {
	return &FluidContainerFillPart{containers: containers, env: env}
}

func (p *FluidContainerFillPart) Kind() string   { return "fluid_container_fill" }
func (p *FluidContainerFillPart) SortOrder() int { return -1 }

func (p *FluidContainerFillPart) Validate() []string {
	var errs []string
	if len(p.containers) == 0 {
		errs = append(errs, "No containers specified in fluid_container_fill")
	}
	for _, c := range p.containers {
		if c.Full == "" || c.Fluid == "" {
			errs = append(errs, "fluid_container_fill declares a container without full kind or fluid")
			continue
		}
		if c.Volume <= 0 {
			errs = append(errs, fmt.Sprintf("fluid_container_fill declares non-positive volume for %s", c.Full))
		}
		if p.env.KnownFluid != nil && !p.env.KnownFluid(c.Fluid) {
			errs = append(errs, fmt.Sprintf("%s is an invalid fluid in fluid_container_fill", c.Fluid))
		}
	}
	if p.env.Items == nil || p.env.Fluids == nil {
		errs = append(errs, "fluid_container_fill requires item and fluid inventories")
	}
	return errs
}

func (p *FluidContainerFillPart) container(kind string) (FluidContainer, bool) {
	for _, c := range p.containers {
		if c.Full == kind {
			return c, true
		}
	}
	return FluidContainer{}, false
}

// Reserve 选中第一个能整桶倒空、且空容器有处可放的容器槽位
func (p *FluidContainerFillPart) Reserve(exec *ExecContext) error {
	ws := exec.Workstation
	held := exec.Scratch.HeldItems()
	for _, slot := range ws.Layout.Slots(types.CategoryFluidContainerInput) {
		item, ok := p.env.Items.ItemAt(ws.ID, slot)
		if !ok || item.Count-held[slot] < 1 || !exec.AcceptItem(slot, item) {
			continue
		}
		c, ok := p.container(item.Kind)
		if !ok {
			continue
		}
		fluid := resource.Fluid{Kind: c.Fluid, Volume: c.Volume}
		if !resource.CanAbsorbFluids(p.env.Fluids, ws.ID, ws.Layout.Slots(types.CategoryFluidInput), []resource.Fluid{fluid}) {
			continue
		}
		if c.Empty != "" && !resource.CanAbsorbItems(p.env.Items, ws.ID, ws.Layout.Slots(types.CategoryFluidContainerOutput),
			[]resource.Stack{{Kind: c.Empty, Count: 1}}) {
			continue
		}
		exec.Scratch.SetValue(containerSlotKey, float64(slot))
		return nil
	}
	return ErrNotViable
}

// Start 取走预留的槽位，倒空容器；空容器放不下时被销毁
func (p *FluidContainerFillPart) Start(exec *ExecContext) {
	v, ok := exec.Scratch.TakeValue(containerSlotKey)
	if !ok {
		return
	}
	ws := exec.Workstation
	slot := int(v)
	item, present := p.env.Items.ItemAt(ws.ID, slot)
	c, known := p.container(item.Kind)
	if !present || !known {
		p.env.log().Error("容器槽位内容已变化", "workstation", ws.ID, "slot", slot)
		return
	}
	removed, ok := p.env.Items.RemoveItems(ws.ID, exec.Instigator, slot, 1)
	if !ok {
		p.env.log().Error("无法取出容器", "workstation", ws.ID, "slot", slot)
		return
	}
	exec.Scratch.Consumed = append(exec.Scratch.Consumed, removed)

	fluid := resource.Fluid{Kind: c.Fluid, Volume: c.Volume}
	if !p.env.Fluids.AddFluid(ws.ID, exec.Instigator, fluid, ws.Layout.Slots(types.CategoryFluidInput)) {
		p.env.log().Warn("容器中的流体无法注入，已丢弃", "workstation", ws.ID, "fluid", fluid.String())
	}
	if c.Empty == "" {
		return
	}
	empty := resource.Stack{Kind: c.Empty, Count: 1}
	if !p.env.Items.GiveItem(ws.ID, exec.Instigator, empty, ws.Layout.Slots(types.CategoryFluidContainerOutput)) {
		p.env.log().Warn("空容器无法放入输出槽，已销毁", "workstation", ws.ID, "item", empty.String())
	}
}

func (p *FluidContainerFillPart) ResponsibleForItemSlot(ws *station.Workstation, slot int) bool {
	return ws.Layout.Contains(types.CategoryFluidContainerInput, slot) ||
		ws.Layout.Contains(types.CategoryFluidContainerOutput, slot)
}

// AcceptsItem 输入槽只接受已声明的满容器，输出槽只允许工作站自己放入
func (p *FluidContainerFillPart) AcceptsItem(ws *station.Workstation, slot int, actor types.ActorID, item resource.Stack) bool {
	if ws.Layout.Contains(types.CategoryFluidContainerInput, slot) {
		_, ok := p.container(item.Kind)
		return ok
	}
	return ws.IsSelf(actor)
}

func (p *FluidContainerFillPart) Describe() PartDescription {
	d := PartDescription{Complexity: len(p.containers)}
	for _, c := range p.containers {
		d.Inputs = append(d.Inputs, fmt.Sprintf("%s -> %s", c.Full, resource.Fluid{Kind: c.Fluid, Volume: c.Volume}))
	}
	return d
}
