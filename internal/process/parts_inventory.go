package process

import (
	"fmt"

	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// ItemInputPart 从输入槽消耗物品
type ItemInputPart struct {
	category string
	items    []ItemAmount
	env      Env
}

// NewItemInputPart 创建物品输入部件，category 为空时使用 INPUT
func NewItemInputPart(category string, items []ItemAmount, env Env) *ItemInputPart {
	if category == "" {
		category = types.CategoryInput
	}
	return &ItemInputPart{category: category, items: items, env: env}
}

func (p *ItemInputPart) Kind() string   { return "item_input" }
func (p *ItemInputPart) SortOrder() int { return -1 }

func (p *ItemInputPart) Validate() []string {
	var errs []string
	if len(p.items) == 0 {
		errs = append(errs, "No input items specified in item_input")
	}
	for _, it := range p.items {
		if it.Kind == "" {
			errs = append(errs, "item_input declares an item without kind")
		}
		if it.Count <= 0 {
			errs = append(errs, fmt.Sprintf("item_input declares non-positive count for %s", it.Kind))
		}
	}
	if p.env.Items == nil {
		errs = append(errs, "item_input requires an item inventory")
	}
	return errs
}

func (p *ItemInputPart) requirements() []resource.ItemRequirement {
	reqs := make([]resource.ItemRequirement, 0, len(p.items))
	for _, it := range p.items {
		reqs = append(reqs, resource.ItemRequirement{Name: it.Kind, Match: resource.KindIs(it.Kind), Amount: it.Count})
	}
	return reqs
}

func (p *ItemInputPart) Reserve(exec *ExecContext) error {
	ws := exec.Workstation
	found, ok := resource.FindItems(p.env.Items, ws.ID, ws.Layout.Slots(p.category), p.requirements(), exec.Scratch.HeldItems(), exec.AcceptItem)
	if !ok {
		return ErrNotViable
	}
	exec.Scratch.ReserveItems(found)
	return nil
}

// Start 消耗 Scratch 中的物品预留；预留已被其他输入部件取走时什么都不做
func (p *ItemInputPart) Start(exec *ExecContext) {
	reservation, ok := exec.Scratch.TakeItems()
	if !ok {
		return
	}
	ws := exec.Workstation
	for _, slot := range reservation.Slots() {
		amount := reservation[slot]
		item, present := p.env.Items.ItemAt(ws.ID, slot)
		if !present || item.Count < amount {
			p.env.log().Error("槽位物品不足", "workstation", ws.ID, "slot", slot, "reserved", amount)
			continue
		}
		removed, ok := p.env.Items.RemoveItems(ws.ID, exec.Instigator, slot, amount)
		if !ok {
			p.env.log().Error("无法移除输入物品", "workstation", ws.ID, "slot", slot)
			continue
		}
		exec.Scratch.Consumed = append(exec.Scratch.Consumed, removed)
	}
}

func (p *ItemInputPart) ResponsibleForItemSlot(ws *station.Workstation, slot int) bool {
	return ws.Layout.Contains(p.category, slot)
}

func (p *ItemInputPart) AcceptsItem(_ *station.Workstation, _ int, _ types.ActorID, item resource.Stack) bool {
	for _, it := range p.items {
		if it.Kind == item.Kind {
			return true
		}
	}
	return false
}

func (p *ItemInputPart) Describe() PartDescription {
	d := PartDescription{Complexity: len(p.items)}
	for _, it := range p.items {
		d.Inputs = append(d.Inputs, resource.Stack{Kind: it.Kind, Count: it.Count}.String())
	}
	return d
}

// ItemOutputPart 在完工时把物品放入输出槽
type ItemOutputPart struct {
	category string
	items    []ItemAmount
	env      Env
}

// NewItemOutputPart 创建物品输出部件，category 为空时使用 OUTPUT
func NewItemOutputPart(category string, items []ItemAmount, env Env) *ItemOutputPart {
	if category == "" {
		category = types.CategoryOutput
	}
	return &ItemOutputPart{category: category, items: items, env: env}
}

func (p *ItemOutputPart) Kind() string   { return "item_output" }
func (p *ItemOutputPart) SortOrder() int { return 1 }

func (p *ItemOutputPart) Validate() []string {
	var errs []string
	if len(p.items) == 0 {
		errs = append(errs, "No output items specified in item_output")
	}
	for _, it := range p.items {
		if it.Kind == "" {
			errs = append(errs, "item_output declares an item without kind")
		}
		if it.Count <= 0 {
			errs = append(errs, fmt.Sprintf("item_output declares non-positive count for %s", it.Kind))
		}
	}
	if p.env.Items == nil {
		errs = append(errs, "item_output requires an item inventory")
	}
	return errs
}

func (p *ItemOutputPart) stacks() []resource.Stack {
	out := make([]resource.Stack, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, resource.Stack{Kind: it.Kind, Count: it.Count})
	}
	return out
}

func (p *ItemOutputPart) Reserve(exec *ExecContext) error {
	ws := exec.Workstation
	if !resource.CanAbsorbItems(p.env.Items, ws.ID, ws.Layout.Slots(p.category), p.stacks()) {
		return ErrNotViable
	}
	return nil
}

// Finish 产出物品，放不下的产出会被丢弃
func (p *ItemOutputPart) Finish(exec *ExecContext) {
	ws := exec.Workstation
	slots := ws.Layout.Slots(p.category)
	for _, item := range p.stacks() {
		if !p.env.Items.GiveItem(ws.ID, exec.Instigator, item, slots) {
			p.env.log().Warn("产出物无法放入输出槽，已丢弃", "workstation", ws.ID, "item", item.String())
		}
	}
}

func (p *ItemOutputPart) ResponsibleForItemSlot(ws *station.Workstation, slot int) bool {
	return ws.Layout.Contains(p.category, slot)
}

// AcceptsItem 输出槽只允许工作站自己放入
func (p *ItemOutputPart) AcceptsItem(ws *station.Workstation, _ int, actor types.ActorID, _ resource.Stack) bool {
	return ws.IsSelf(actor)
}

func (p *ItemOutputPart) Describe() PartDescription {
	d := PartDescription{Complexity: len(p.items)}
	for _, s := range p.stacks() {
		d.Outputs = append(d.Outputs, s.String())
	}
	return d
}
