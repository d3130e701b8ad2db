package handlers

import (
	"log/slog"

	"workstation-engine/internal/engine"
	"workstation-engine/internal/event"
	"workstation-engine/internal/metrics"
	"workstation-engine/internal/web"
)

// RegisterEventHandlers 将所有事件处理器注册到事件总线
// 这是事件驱动架构的核心，将不同的关注点（监控、UI、日志）与调度解耦
func RegisterEventHandlers(bus *event.Bus, st *web.StateTracker, inv web.InventoryView, logger *slog.Logger) {
	logger = logger.With("component", "audit")

	// --- 指标处理器 (Metrics Handler) ---
	bus.Subscribe(event.ProcessStarted, func(e event.Event) {
		trigger := "manual"
		if string(e.Instigator) == string(e.Workstation) {
			trigger = "automatic"
		}
		metrics.ProcessesStartedTotal.WithLabelValues(e.ProcessType, trigger).Inc()
	})
	bus.Subscribe(event.ProcessFinished, func(e event.Event) {
		metrics.ProcessesFinishedTotal.WithLabelValues(e.ProcessType).Inc()
		metrics.ProcessDuration.WithLabelValues(e.ProcessType).Observe(e.Duration.Seconds())
	})
	bus.Subscribe(event.ProcessRejected, func(e event.Event) {
		metrics.ProcessesRejectedTotal.WithLabelValues(engine.RejectReason(e.Error)).Inc()
	})

	// --- Web UI 处理器 (Web UI Handler) ---
	bus.Subscribe(event.ProcessStarted, func(e event.Event) {
		st.ProcessStarted(e.Workstation, web.RunningProcess{
			InstanceID:  e.InstanceID,
			ProcessID:   e.ProcessID,
			ProcessType: e.ProcessType,
			Instigator:  e.Instigator,
			Duration:    e.Duration,
		})
	})
	bus.Subscribe(event.ProcessFinished, func(e event.Event) {
		st.ProcessFinished(e.Workstation, e.InstanceID, e.ProcessType)
	})
	bus.Subscribe(event.ProcessRejected, func(e event.Event) {
		st.ProcessRejected(e.Workstation)
	})
	if inv != nil {
		bus.Subscribe(event.WorkstationChanged, func(e event.Event) {
			st.UpdateInventory(e.Workstation, inv)
		})
	}

	// --- 日志处理器 (Logging Handler) ---
	bus.Subscribe(event.ProcessRejected, func(e event.Event) {
		logger.Warn("开工请求被拒绝", "workstation", e.Workstation, "process_id", e.ProcessID,
			"instigator", e.Instigator, "error", e.Error)
	})
	bus.Subscribe(event.ProcessFinished, func(e event.Event) {
		logger.Info("工艺实例完工", "workstation", e.Workstation, "process_id", e.ProcessID,
			"instance_id", e.InstanceID, "duration", e.Duration)
	})
}
