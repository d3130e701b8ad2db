package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 定义 Prometheus 监控指标
var (
	// ProcessesStartedTotal 计数器：开工的工艺实例总数
	// 按工艺类型和触发方式 (manual/automatic) 分类
	ProcessesStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workstation_processes_started_total",
		Help: "The total number of started process instances",
	}, []string{"process_type", "trigger"})

	// ProcessesFinishedTotal 计数器：完工的工艺实例总数
	ProcessesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workstation_processes_finished_total",
		Help: "The total number of finished process instances",
	}, []string{"process_type"})

	// ProcessesRejectedTotal 计数器：被拒绝的手动请求
	// 按拒绝原因分类，便于定位配置问题
	ProcessesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workstation_processes_rejected_total",
		Help: "The total number of rejected process requests",
	}, []string{"reason"})

	// InstancesInFlight 仪表盘：当前进行中的实例数量
	InstancesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workstation_instances_in_flight",
		Help: "The number of process instances currently running",
	})

	// PendingChecks 仪表盘：等待自动开工检查的工作站数量
	PendingChecks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workstation_pending_checks",
		Help: "The number of workstations waiting for an automatic-process check",
	})

	// ProcessDuration 直方图：工艺时长分布（模拟时间）
	ProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workstation_process_duration_seconds",
		Help:    "Simulated duration of each process instance",
		Buckets: prometheus.DefBuckets,
	}, []string{"process_type"})
)
