// Package engine 是工作站工艺的调度权威：负责开工、完工、自动开工检查和唤醒定时器。
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"workstation-engine/internal/event"
	"workstation-engine/internal/fsm"
	"workstation-engine/internal/metrics"
	"workstation-engine/internal/persistence"
	"workstation-engine/internal/process"
	"workstation-engine/internal/registry"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/timer"
	"workstation-engine/internal/types"
	"workstation-engine/internal/util"
)

var (
	// ErrUnknownWorkstation 表示工作站未注册
	ErrUnknownWorkstation = errors.New("unknown workstation")
	// ErrUnknownProcess 表示工作站不支持该工艺（类型不支持或等级过高）
	ErrUnknownProcess = registry.ErrUnknownProcess
	// ErrAlreadyRunning 表示同类型的工艺正在进行
	ErrAlreadyRunning = errors.New("process type already running on workstation")
	// ErrNotViable 表示工艺当前不满足开工条件
	ErrNotViable = process.ErrNotViable
)

// DefaultRevivalInterval 是兜底检查所有自动工作站的间隔（模拟时间）
const DefaultRevivalInterval = 10 * time.Second

// Authority 持有所有进行中的工艺实例。
// 同一时刻只有一个处理轮次 (pass) 在执行；处理过程中触发的状态变化只入队，由外层轮次循环处理。
type Authority struct {
	registry *registry.Registry
	stations *station.Directory
	clock    timer.Clock
	timers   *timer.Queue
	store    persistence.Store
	bus      *event.Bus
	logger   *slog.Logger

	mu         sync.RWMutex // 保护 processing
	processing map[types.WorkstationID]map[string]*Instance

	pass      sync.Mutex
	executing atomic.Bool

	pendingMu  sync.Mutex
	pending    []types.WorkstationID
	pendingSet map[types.WorkstationID]bool

	revivalMu       sync.Mutex
	revivalInterval time.Duration
	lastRevival     time.Time
}

// NewAuthority 创建调度权威，store 和 bus 可以为空
func NewAuthority(reg *registry.Registry, stations *station.Directory, clock timer.Clock, store persistence.Store, bus *event.Bus, logger *slog.Logger) *Authority {
	if clock == nil {
		clock = timer.SystemClock{}
	}
	if store == nil {
		store = persistence.NopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{
		registry:        reg,
		stations:        stations,
		clock:           clock,
		timers:          timer.NewQueue(),
		store:           store,
		bus:             bus,
		logger:          logger.With("component", "authority"),
		processing:      make(map[types.WorkstationID]map[string]*Instance),
		pendingSet:      make(map[types.WorkstationID]bool),
		revivalInterval: DefaultRevivalInterval,
	}
}

// SetRevivalInterval 设置兜底检查间隔，<= 0 表示关闭
func (a *Authority) SetRevivalInterval(d time.Duration) {
	a.revivalMu.Lock()
	defer a.revivalMu.Unlock()
	a.revivalInterval = d
}

// RequestProcess 处理手动开工请求
func (a *Authority) RequestProcess(ctx context.Context, instigator types.ActorID, wsID types.WorkstationID, processID string) (*Instance, error) {
	logger := a.logger.With("workstation", wsID, "process_id", processID, "instigator", instigator)
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		logger = logger.With("trace_id", traceID)
	}

	a.lockPass()
	defer a.unlockPass()

	inst, err := a.request(instigator, wsID, processID, logger)
	if err != nil {
		logger.Info("手动开工请求被拒绝", "error", err)
		a.publish(event.Event{Type: event.ProcessRejected, Workstation: wsID, ProcessID: processID, Instigator: instigator, Error: err})
		return nil, err
	}
	return inst, nil
}

func (a *Authority) request(instigator types.ActorID, wsID types.WorkstationID, processID string, logger *slog.Logger) (*Instance, error) {
	ws, ok := a.stations.Get(wsID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkstation, wsID)
	}
	proc, err := a.registry.ProcessByID(ws.ProcessTypes(), processID)
	if err != nil {
		return nil, err
	}
	if !ws.Supports(proc.Type(), proc.Level()) {
		return nil, fmt.Errorf("%w: %s requires level %d", ErrUnknownProcess, processID, proc.Level())
	}
	if a.running(wsID, proc.Type()) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, proc.Type())
	}
	return a.start(ws, proc, instigator, logger)
}

// start 预留、计算时长、开工；时长为 0 时直接完工。调用方必须持有 pass 锁。
func (a *Authority) start(ws *station.Workstation, proc *process.Process, instigator types.ActorID, logger *slog.Logger) (*Instance, error) {
	now := a.clock.Now()
	exec := process.NewExecContext(instigator, ws, nil)
	exec.Now = now
	if err := proc.Reserve(exec); err != nil {
		return nil, err
	}
	d := proc.Duration(exec)

	inst := newInstance(ws.ID, instigator, proc, exec.Scratch, now, d)
	if err := inst.fsm.Fire(fsm.EventStart); err != nil {
		return nil, err
	}
	logger = logger.With("instance_id", inst.ID, "process_type", inst.ProcessType)

	proc.StartExecution(exec)
	logger.Info("工艺开工", "duration", d)
	a.publish(event.Event{
		Type: event.ProcessStarted, Workstation: ws.ID, ProcessID: inst.ProcessID, ProcessType: inst.ProcessType,
		InstanceID: inst.ID, Instigator: instigator, Duration: d,
	})

	if d <= 0 {
		a.complete(ws, proc, inst, logger)
		return inst, nil
	}

	a.track(inst)
	if err := a.store.Save(inst.record()); err != nil {
		logger.Error("持久化实例失败", "error", err)
	}
	a.reschedule(ws.ID)
	return inst, nil
}

// complete 完工并产出。实例已完工时直接返回，保证产出只发生一次。
func (a *Authority) complete(ws *station.Workstation, proc *process.Process, inst *Instance, logger *slog.Logger) {
	if err := inst.fsm.Fire(fsm.EventFinish); err != nil {
		logger.Debug("实例已完工，忽略重复完工", "instance_id", inst.ID)
		return
	}
	if proc != nil {
		exec := process.NewExecContext(inst.Instigator, ws, inst.Scratch)
		exec.Now = a.clock.Now()
		proc.FinishExecution(exec)
	}
	inst.Scratch = nil
	logger.Info("工艺完工", "instance_id", inst.ID)
	a.publish(event.Event{
		Type: event.ProcessFinished, Workstation: inst.Workstation, ProcessID: inst.ProcessID, ProcessType: inst.ProcessType,
		InstanceID: inst.ID, Instigator: inst.Instigator, Duration: inst.Duration(),
	})
	a.enqueue(inst.Workstation)
}

func (a *Authority) track(inst *Instance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byType, ok := a.processing[inst.Workstation]
	if !ok {
		byType = make(map[string]*Instance)
		a.processing[inst.Workstation] = byType
	}
	if existing, ok := byType[inst.ProcessType]; ok {
		panic(fmt.Sprintf("workstation %s already runs %s instance %s", inst.Workstation, inst.ProcessType, existing.ID))
	}
	byType[inst.ProcessType] = inst
	metrics.InstancesInFlight.Inc()
}

func (a *Authority) untrack(inst *Instance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byType := a.processing[inst.Workstation]
	if byType[inst.ProcessType] != inst {
		return
	}
	delete(byType, inst.ProcessType)
	if len(byType) == 0 {
		delete(a.processing, inst.Workstation)
	}
	metrics.InstancesInFlight.Dec()
}

func (a *Authority) running(ws types.WorkstationID, processType string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.processing[ws][processType]
	return ok
}

// instances 按工艺类型排序返回工作站的进行中实例
func (a *Authority) instances(ws types.WorkstationID) []*Instance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	byType := a.processing[ws]
	out := make([]*Instance, 0, len(byType))
	for _, inst := range byType {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessType < out[j].ProcessType })
	return out
}

// InFlight 返回工作站当前进行中的实例快照
func (a *Authority) InFlight(ws types.WorkstationID) []InstanceInfo {
	insts := a.instances(ws)
	out := make([]InstanceInfo, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.Info())
	}
	return out
}

// NextWakeUp 返回工作站下一次唤醒的时间
func (a *Authority) NextWakeUp(ws types.WorkstationID) (time.Time, bool) {
	return a.timers.Scheduled(ws, types.WakeUpActionID)
}

// reschedule 取消旧的唤醒，并在最早的完工时间重新调度
func (a *Authority) reschedule(ws types.WorkstationID) {
	a.timers.Cancel(ws, types.WakeUpActionID)
	var earliest time.Time
	for _, inst := range a.instances(ws) {
		if earliest.IsZero() || inst.Finish.Before(earliest) {
			earliest = inst.Finish
		}
	}
	if !earliest.IsZero() {
		a.timers.Schedule(ws, types.WakeUpActionID, earliest)
	}
}

// WakeUp 是唤醒定时器的回调：完工所有到期实例，处理待检查队列，并为剩余实例重新调度
func (a *Authority) WakeUp(ws types.WorkstationID, actionID string) {
	a.wakeUp(ws, actionID, a.clock.Now())
}

func (a *Authority) wakeUp(wsID types.WorkstationID, actionID string, now time.Time) {
	if actionID != types.WakeUpActionID {
		a.logger.Debug("忽略未知的延迟动作", "workstation", wsID, "action", actionID)
		return
	}
	a.lockPass()
	defer a.unlockPass()

	ws, ok := a.stations.Get(wsID)
	for _, inst := range a.instances(wsID) {
		if inst.Finish.After(now) {
			continue
		}
		a.finishInstance(ws, ok, inst)
	}
	a.reschedule(wsID)
}

func (a *Authority) finishInstance(ws *station.Workstation, wsExists bool, inst *Instance) {
	logger := a.logger.With("workstation", inst.Workstation, "process_id", inst.ProcessID, "process_type", inst.ProcessType)
	a.untrack(inst)
	if err := a.store.Remove(inst.ID); err != nil {
		logger.Error("删除持久化实例失败", "instance_id", inst.ID, "error", err)
	}
	if !wsExists {
		logger.Warn("工作站已注销，丢弃实例", "instance_id", inst.ID)
		return
	}
	proc, err := a.registry.ProcessByID([]string{inst.ProcessType}, inst.ProcessID)
	if err != nil {
		logger.Error("找不到实例对应的工艺，跳过产出", "instance_id", inst.ID, "error", err)
		proc = nil
	}
	a.complete(ws, proc, inst, logger)
}

// NotifyStateChanged 通知工作站资源发生变化，需要检查自动工艺
func (a *Authority) NotifyStateChanged(ws types.WorkstationID) {
	a.enqueue(ws)
	a.publish(event.Event{Type: event.WorkstationChanged, Workstation: ws})
	if a.executing.Load() {
		return
	}
	if !a.pass.TryLock() {
		return
	}
	a.executing.Store(true)
	a.unlockPass()
}

// Revive 兜底检查：含自动工艺且没有进行中实例的工作站入队，丢失定时器的工作站重新调度
func (a *Authority) Revive() {
	a.lockPass()
	defer a.unlockPass()
	for _, id := range a.idleAutomatic() {
		a.enqueue(id)
	}
	for _, ws := range a.stations.All() {
		if _, scheduled := a.timers.Scheduled(ws.ID, types.WakeUpActionID); !scheduled && len(a.instances(ws.ID)) > 0 {
			a.logger.Warn("工作站缺少唤醒定时器，重新调度", "workstation", ws.ID)
			a.reschedule(ws.ID)
		}
	}
}

// idleAutomatic 返回含自动工艺且没有进行中实例的工作站
func (a *Authority) idleAutomatic() []types.WorkstationID {
	var out []types.WorkstationID
	for _, ws := range a.stations.All() {
		if ws.HasAutomatic() && len(a.instances(ws.ID)) == 0 {
			out = append(out, ws.ID)
		}
	}
	return out
}

// Restore 从存储中恢复进行中的实例并重新调度，已过期的实例在下一次 Tick 完工
func (a *Authority) Restore() error {
	recs, err := a.store.Load()
	if err != nil {
		return fmt.Errorf("加载持久化实例失败: %w", err)
	}
	a.lockPass()
	defer a.unlockPass()

	touched := make(map[types.WorkstationID]bool)
	for _, rec := range recs {
		logger := a.logger.With("workstation", rec.Workstation, "process_id", rec.ProcessID, "instance_id", rec.ID)
		ws, ok := a.stations.Get(rec.Workstation)
		if !ok {
			logger.Warn("工作站不存在，丢弃持久化实例")
			_ = a.store.Remove(rec.ID)
			continue
		}
		if _, err := a.registry.ProcessByID(ws.ProcessTypes(), rec.ProcessID); err != nil {
			logger.Warn("工艺不存在，丢弃持久化实例", "error", err)
			_ = a.store.Remove(rec.ID)
			continue
		}
		if a.running(ws.ID, rec.ProcessType) {
			logger.Warn("同类型实例重复，丢弃较晚的记录", "process_type", rec.ProcessType)
			_ = a.store.Remove(rec.ID)
			continue
		}
		a.track(instanceFromRecord(rec))
		touched[ws.ID] = true
		logger.Info("恢复进行中的实例", "finish", rec.Finish)
	}
	for ws := range touched {
		a.reschedule(ws)
	}
	return nil
}

// ValidateItemInsertion 判断外部放入物品是否合法：
// 没有任何工艺声明的槽位接受任何物品，否则至少一个声明该槽位的工艺要接受它
func (a *Authority) ValidateItemInsertion(wsID types.WorkstationID, slot int, actor types.ActorID, item resource.Stack) bool {
	ws, ok := a.stations.Get(wsID)
	if !ok {
		return true
	}
	responsible := false
	for _, p := range a.supported(ws) {
		if !p.IsResponsibleForItemSlot(ws, slot) {
			continue
		}
		responsible = true
		if p.IsValidForItemSlot(ws, slot, actor, item) {
			return true
		}
	}
	return !responsible
}

// ValidateFluidInsertion 是流体版本的 ValidateItemInsertion
func (a *Authority) ValidateFluidInsertion(wsID types.WorkstationID, slot int, actor types.ActorID, fluid resource.Fluid) bool {
	ws, ok := a.stations.Get(wsID)
	if !ok {
		return true
	}
	responsible := false
	for _, p := range a.supported(ws) {
		if !p.IsResponsibleForFluidSlot(ws, slot) {
			continue
		}
		responsible = true
		if p.IsValidForFluidSlot(ws, slot, actor, fluid) {
			return true
		}
	}
	return !responsible
}

// Processes 返回工作站可以运行的全部工艺
func (a *Authority) Processes(wsID types.WorkstationID) ([]*process.Process, error) {
	ws, ok := a.stations.Get(wsID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkstation, wsID)
	}
	return a.supported(ws), nil
}

func (a *Authority) supported(ws *station.Workstation) []*process.Process {
	var out []*process.Process
	for _, p := range a.registry.ProcessesByType(ws.ProcessTypes()) {
		if ws.Supports(p.Type(), p.Level()) {
			out = append(out, p)
		}
	}
	return out
}

// checkAutomatic 尝试为工作站启动所有未在进行中的自动工艺，失败直接忽略
func (a *Authority) checkAutomatic(wsID types.WorkstationID) {
	ws, ok := a.stations.Get(wsID)
	if !ok {
		return
	}
	logger := a.logger.With("workstation", wsID)
	for _, processType := range ws.AutomaticTypes() {
		if a.running(wsID, processType) {
			continue
		}
		for _, p := range a.registry.ProcessesByType([]string{processType}) {
			if !ws.Supports(processType, p.Level()) {
				continue
			}
			if _, err := a.start(ws, p, ws.ID.Actor(), logger.With("process_id", p.ID())); err == nil {
				break
			}
		}
	}
}

func (a *Authority) enqueue(ws types.WorkstationID) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if a.pendingSet[ws] {
		return
	}
	a.pendingSet[ws] = true
	a.pending = append(a.pending, ws)
	metrics.PendingChecks.Set(float64(len(a.pending)))
}

func (a *Authority) dequeue() (types.WorkstationID, bool) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if len(a.pending) == 0 {
		return "", false
	}
	ws := a.pending[0]
	a.pending = a.pending[1:]
	delete(a.pendingSet, ws)
	metrics.PendingChecks.Set(float64(len(a.pending)))
	return ws, true
}

func (a *Authority) hasPending() bool {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	return len(a.pending) > 0
}

func (a *Authority) lockPass() {
	a.pass.Lock()
	a.executing.Store(true)
}

// unlockPass 先处理完待检查队列再释放 pass 锁；
// 释放后如有新入队的检查且没有其他轮次在执行，则由当前 goroutine 继续处理
func (a *Authority) unlockPass() {
	for {
		for {
			ws, ok := a.dequeue()
			if !ok {
				break
			}
			a.checkAutomatic(ws)
		}
		a.executing.Store(false)
		a.pass.Unlock()
		if !a.hasPending() || !a.pass.TryLock() {
			return
		}
		a.executing.Store(true)
	}
}

func (a *Authority) publish(e event.Event) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}

// RejectReason 把拒绝错误归类为指标标签
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownWorkstation):
		return "unknown_workstation"
	case errors.Is(err, ErrUnknownProcess):
		return "unknown_process"
	case errors.Is(err, ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, ErrNotViable):
		return "not_viable"
	default:
		return "other"
	}
}
