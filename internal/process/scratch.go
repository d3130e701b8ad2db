package process

import "workstation-engine/internal/resource"

// Scratch 是一次工艺执行的临时记录。
// 校验阶段写入预留，开工阶段以 take 语义取走，保证同一份预留只被消耗一次。
type Scratch struct {
	Items          resource.Reservation      `json:"items,omitempty"`
	Fluids         resource.FluidReservation `json:"fluids,omitempty"`
	Consumed       []resource.Stack          `json:"consumed,omitempty"`
	ConsumedFluids []resource.Fluid          `json:"consumed_fluids,omitempty"`
	Values         map[string]float64        `json:"values,omitempty"`
}

// NewScratch 创建空的临时记录
func NewScratch() *Scratch {
	return &Scratch{}
}

// HeldItems 返回已预留的物品（只读使用）
func (s *Scratch) HeldItems() resource.Reservation {
	return s.Items
}

// ReserveItems 合并一份物品预留
func (s *Scratch) ReserveItems(r resource.Reservation) {
	if len(r) == 0 {
		return
	}
	if s.Items == nil {
		s.Items = resource.Reservation{}
	}
	s.Items.Merge(r)
}

// TakeItems 取走全部物品预留；已被取走时返回 false
func (s *Scratch) TakeItems() (resource.Reservation, bool) {
	r := s.Items
	s.Items = nil
	return r, r != nil
}

// HeldFluids 返回已预留的流体
func (s *Scratch) HeldFluids() resource.FluidReservation {
	return s.Fluids
}

// ReserveFluids 合并一份流体预留
func (s *Scratch) ReserveFluids(r resource.FluidReservation) {
	if len(r) == 0 {
		return
	}
	if s.Fluids == nil {
		s.Fluids = resource.FluidReservation{}
	}
	s.Fluids.Merge(r)
}

// TakeFluids 取走全部流体预留
func (s *Scratch) TakeFluids() (resource.FluidReservation, bool) {
	r := s.Fluids
	s.Fluids = nil
	return r, r != nil
}

// SetValue 供自定义部件保存数值
func (s *Scratch) SetValue(key string, v float64) {
	if s.Values == nil {
		s.Values = make(map[string]float64)
	}
	s.Values[key] = v
}

// TakeValue 读取并删除自定义数值，第二次读取返回 false
func (s *Scratch) TakeValue(key string) (float64, bool) {
	v, ok := s.Values[key]
	if ok {
		delete(s.Values, key)
	}
	return v, ok
}

// Value 读取自定义数值
func (s *Scratch) Value(key string) (float64, bool) {
	v, ok := s.Values[key]
	return v, ok
}
