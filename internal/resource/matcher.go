package resource

import "workstation-engine/internal/types"

// ItemRequirement 是一组物品需求：满足谓词的物品共 Amount 个
type ItemRequirement struct {
	Name   string
	Match  func(Stack) bool
	Amount int
}

// FluidRequirement 是一组流体需求
type FluidRequirement struct {
	Name   string
	Match  func(Fluid) bool
	Volume float64
}

// ItemFilter 允许调用方拒绝某个槽位里的物品（例如其他工艺部件不接受它）
type ItemFilter func(slot int, item Stack) bool

// FluidFilter 是流体版本的槽位过滤
type FluidFilter func(slot int, fluid Fluid) bool

// KindIs 返回按种类匹配物品的谓词
func KindIs(kind string) func(Stack) bool {
	return func(s Stack) bool { return s.Kind == kind }
}

// FluidIs 返回按种类匹配流体的谓词
func FluidIs(kind string) func(Fluid) bool {
	return func(f Fluid) bool { return f.Kind == kind }
}

type quantity interface{ ~int | ~float64 }

// match 是物品和流体共用的匹配核心。
// 按声明顺序处理每组需求，按槽位顺序扫描；held 是同一流水线中前序部件已占用的数量，
// used 记录本次调用内已分配的数量，保证同一份资源不会被两组需求重复计算。
func match[R any, N quantity](slots []int, reqs []R, need func(R) N, avail func(slot int, r R) (N, bool), held map[int]N, epsilon N) (map[int]N, bool) {
	used := make(map[int]N)
	for _, r := range reqs {
		remaining := need(r)
		if remaining <= epsilon {
			continue
		}
		for _, slot := range slots {
			have, ok := avail(slot, r)
			if !ok {
				continue
			}
			free := have - held[slot] - used[slot]
			if free <= epsilon {
				continue
			}
			take := min(free, remaining)
			used[slot] += take
			remaining -= take
			if remaining <= epsilon {
				break
			}
		}
		if remaining > epsilon {
			return nil, false
		}
	}
	return used, true
}

// FindItems 在给定槽位中为全部需求计算预留。
// 任意一组需求不能完全满足时返回 false，且不会返回部分预留；本函数从不修改容器。
func FindItems(inv ItemReader, ws types.WorkstationID, slots []int, reqs []ItemRequirement, held Reservation, accept ItemFilter) (Reservation, bool) {
	avail := func(slot int, r ItemRequirement) (int, bool) {
		item, ok := inv.ItemAt(ws, slot)
		if !ok || item.Count <= 0 || r.Match == nil || !r.Match(item) {
			return 0, false
		}
		if accept != nil && !accept(slot, item) {
			return 0, false
		}
		return item.Count, true
	}
	found, ok := match(slots, reqs, func(r ItemRequirement) int { return r.Amount }, avail, map[int]int(held), 0)
	if !ok {
		return nil, false
	}
	return Reservation(found), true
}

// FindFluids 是 FindItems 的流体版本
func FindFluids(inv FluidReader, ws types.WorkstationID, slots []int, reqs []FluidRequirement, held FluidReservation, accept FluidFilter) (FluidReservation, bool) {
	avail := func(slot int, r FluidRequirement) (float64, bool) {
		fluid, ok := inv.FluidAt(ws, slot)
		if !ok || fluid.Volume <= FluidEpsilon || r.Match == nil || !r.Match(fluid) {
			return 0, false
		}
		if accept != nil && !accept(slot, fluid) {
			return 0, false
		}
		return fluid.Volume, true
	}
	found, ok := match(slots, reqs, func(r FluidRequirement) float64 { return r.Volume }, avail, map[int]float64(held), FluidEpsilon)
	if !ok {
		return nil, false
	}
	return FluidReservation(found), true
}

// CanAbsorbItems 判断输出槽位能否容纳所有产出物。
// 每个已占用且可堆叠的槽位吸收一组产出，剩余的产出组需要同样多的空槽。
func CanAbsorbItems(inv ItemReader, ws types.WorkstationID, slots []int, outputs []Stack) bool {
	left := append([]Stack(nil), outputs...)
	empty := 0
	for _, slot := range slots {
		existing, ok := inv.ItemAt(ws, slot)
		if !ok || existing.Count <= 0 {
			empty++
			continue
		}
		for i, out := range left {
			if inv.CanStack(out, existing) {
				left = append(left[:i], left[i+1:]...)
				break
			}
		}
	}
	return empty >= len(left)
}

// CanAbsorbFluids 是 CanAbsorbItems 的流体版本
func CanAbsorbFluids(inv FluidReader, ws types.WorkstationID, slots []int, outputs []Fluid) bool {
	left := append([]Fluid(nil), outputs...)
	empty := 0
	for _, slot := range slots {
		existing, ok := inv.FluidAt(ws, slot)
		if !ok || existing.Volume <= FluidEpsilon {
			empty++
			continue
		}
		for i, out := range left {
			if inv.CanMix(out, existing) {
				left = append(left[:i], left[i+1:]...)
				break
			}
		}
	}
	return empty >= len(left)
}
