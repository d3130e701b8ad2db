package process

import (
	"fmt"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// FluidInputPart 从输入流体槽消耗流体
type FluidInputPart struct {
	category string
	fluids   []FluidAmount
	env      Env
}

// NewFluidInputPart 创建流体输入部件，category 为空时使用 FLUID_INPUT
func NewFluidInputPart(category string, fluids []FluidAmount, env Env) *FluidInputPart {
	if category == "" {
		category = types.CategoryFluidInput
	}
	return &FluidInputPart{category: category, fluids: fluids, env: env}
}

func (p *FluidInputPart) Kind() string   { return "fluid_input" }
func (p *FluidInputPart) SortOrder() int { return -1 }

func (p *FluidInputPart) Validate() []string {
	return validateFluids("fluid_input", "input", p.fluids, p.env)
}

func validateFluids(kind, direction string, fluids []FluidAmount, env Env) []string {
	var errs []string
	if len(fluids) == 0 {
		errs = append(errs, fmt.Sprintf("No %s fluids specified in %s", direction, kind))
	}
	for _, f := range fluids {
		if f.Kind == "" {
			errs = append(errs, fmt.Sprintf("%s declares a fluid without kind", kind))
			continue
		}
		if f.Volume <= 0 {
			errs = append(errs, fmt.Sprintf("%s declares non-positive volume for %s", kind, f.Kind))
		}
		if env.KnownFluid != nil && !env.KnownFluid(f.Kind) {
			errs = append(errs, fmt.Sprintf("%s is an invalid fluid in %s", f.Kind, kind))
		}
	}
	if env.Fluids == nil {
		errs = append(errs, fmt.Sprintf("%s requires a fluid inventory", kind))
	}
	return errs
}

func (p *FluidInputPart) requirements() []resource.FluidRequirement {
	reqs := make([]resource.FluidRequirement, 0, len(p.fluids))
	for _, f := range p.fluids {
		reqs = append(reqs, resource.FluidRequirement{Name: f.Kind, Match: resource.FluidIs(f.Kind), Volume: f.Volume})
	}
	return reqs
}

func (p *FluidInputPart) Reserve(exec *ExecContext) error {
	ws := exec.Workstation
	found, ok := resource.FindFluids(p.env.Fluids, ws.ID, ws.Layout.Slots(p.category), p.requirements(), exec.Scratch.HeldFluids(), exec.AcceptFluid)
	if !ok {
		return ErrNotViable
	}
	exec.Scratch.ReserveFluids(found)
	return nil
}

func (p *FluidInputPart) Start(exec *ExecContext) {
	reservation, ok := exec.Scratch.TakeFluids()
	if !ok {
		return
	}
	ws := exec.Workstation
	for _, slot := range reservation.Slots() {
		volume := reservation[slot]
		fluid, present := p.env.Fluids.FluidAt(ws.ID, slot)
		if !present || fluid.Volume+resource.FluidEpsilon < volume {
			p.env.log().Error("流体槽体积不足", "workstation", ws.ID, "slot", slot, "reserved", volume)
			continue
		}
		removed, ok := p.env.Fluids.RemoveFluid(ws.ID, exec.Instigator, slot, volume)
		if !ok {
			p.env.log().Error("无法移除输入流体", "workstation", ws.ID, "slot", slot)
			continue
		}
		exec.Scratch.ConsumedFluids = append(exec.Scratch.ConsumedFluids, removed)
	}
}

func (p *FluidInputPart) ResponsibleForFluidSlot(ws *station.Workstation, slot int) bool {
	return ws.Layout.Contains(p.category, slot)
}

func (p *FluidInputPart) AcceptsFluid(_ *station.Workstation, _ int, _ types.ActorID, fluid resource.Fluid) bool {
	for _, f := range p.fluids {
		if f.Kind == fluid.Kind {
			return true
		}
	}
	return false
}

func (p *FluidInputPart) Describe() PartDescription {
	d := PartDescription{Complexity: len(p.fluids)}
	for _, f := range p.fluids {
		d.Inputs = append(d.Inputs, resource.Fluid{Kind: f.Kind, Volume: f.Volume}.String())
	}
	return d
}

// FluidOutputPart 在完工时向输出流体槽注入流体
type FluidOutputPart struct {
	category string
	fluids   []FluidAmount
	env      Env
}

// NewFluidOutputPart 创建流体输出部件，category 为空时使用 FLUID_OUTPUT
func NewFluidOutputPart(category string, fluids []FluidAmount, env Env) *FluidOutputPart {
	if category == "" {
		category = types.CategoryFluidOutput
	}
	return &FluidOutputPart{category: category, fluids: fluids, env: env}
}

func (p *FluidOutputPart) Kind() string   { return "fluid_output" }
func (p *FluidOutputPart) SortOrder() int { return 1 }

func (p *FluidOutputPart) Validate() []string {
	return validateFluids("fluid_output", "output", p.fluids, p.env)
}

func (p *FluidOutputPart) outputs() []resource.Fluid {
	out := make([]resource.Fluid, 0, len(p.fluids))
	for _, f := range p.fluids {
		out = append(out, resource.Fluid{Kind: f.Kind, Volume: f.Volume})
	}
	return out
}

func (p *FluidOutputPart) Reserve(exec *ExecContext) error {
	ws := exec.Workstation
	if !resource.CanAbsorbFluids(p.env.Fluids, ws.ID, ws.Layout.Slots(p.category), p.outputs()) {
		return ErrNotViable
	}
	return nil
}

func (p *FluidOutputPart) Finish(exec *ExecContext) {
	ws := exec.Workstation
	slots := ws.Layout.Slots(p.category)
	for _, f := range p.outputs() {
		if !p.env.Fluids.AddFluid(ws.ID, exec.Instigator, f, slots) {
			p.env.log().Warn("产出流体无法注入，已丢弃", "workstation", ws.ID, "fluid", f.String())
		}
	}
}

func (p *FluidOutputPart) ResponsibleForFluidSlot(ws *station.Workstation, slot int) bool {
	return ws.Layout.Contains(p.category, slot)
}

func (p *FluidOutputPart) AcceptsFluid(ws *station.Workstation, _ int, actor types.ActorID, _ resource.Fluid) bool {
	return ws.IsSelf(actor)
}

func (p *FluidOutputPart) Describe() PartDescription {
	d := PartDescription{Complexity: len(p.fluids)}
	for _, f := range p.outputs() {
		d.Outputs = append(d.Outputs, f.String())
	}
	return d
}
