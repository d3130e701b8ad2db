// Package registry 按工艺类型延迟加载并缓存编译好的工艺。
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"workstation-engine/internal/process"
)

// ErrUnknownProcess 表示在给定类型中找不到该工艺
var ErrUnknownProcess = errors.New("unknown process")

// Registry 每种工艺类型只扫描一次模板源，编译失败的模板记录警告后永久排除，直到 Reset
type Registry struct {
	mu            sync.RWMutex
	factory       *process.Factory
	defaultSource Source
	sources       map[string]Source
	scanned       map[string]bool
	byType        map[string]map[string]*process.Process
	logger        *slog.Logger
}

// New 创建注册表，defaultSource 用于没有单独注册模板源的工艺类型，可以为空
func New(factory *process.Factory, defaultSource Source, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory:       factory,
		defaultSource: defaultSource,
		sources:       make(map[string]Source),
		scanned:       make(map[string]bool),
		byType:        make(map[string]map[string]*process.Process),
		logger:        logger.With("component", "registry"),
	}
}

// RegisterProcessType 为某个工艺类型指定模板源，下次查询时重新扫描
func (r *Registry) RegisterProcessType(processType string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[processType] = src
	delete(r.scanned, processType)
	delete(r.byType, processType)
}

// Register 直接注册一个已编译的工艺
func (r *Registry) Register(p *process.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned(p.Type())
	r.byType[p.Type()][p.ID()] = p
}

// Reset 清空缓存，下次查询时重新扫描所有模板源
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = make(map[string]bool)
	r.byType = make(map[string]map[string]*process.Process)
	r.logger.Info("工艺缓存已清空")
}

// ProcessesByType 返回给定类型的全部工艺，类型按传入顺序，同一类型内按 ID 排序
func (r *Registry) ProcessesByType(types []string) []*process.Process {
	r.scanTypes(types)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*process.Process
	for _, t := range types {
		procs := r.byType[t]
		ids := make([]string, 0, len(procs))
		for id := range procs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, procs[id])
		}
	}
	return out
}

// ProcessByID 在给定类型中按 ID 查找工艺
func (r *Registry) ProcessByID(types []string, id string) (*process.Process, error) {
	r.scanTypes(types)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range types {
		if p, ok := r.byType[t][id]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProcess, id)
}

func (r *Registry) scanTypes(types []string) {
	r.mu.RLock()
	missing := false
	for _, t := range types {
		if !r.scanned[t] {
			missing = true
			break
		}
	}
	r.mu.RUnlock()
	if !missing {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.ensureScanned(t)
	}
}

// ensureScanned 调用方必须持有写锁
func (r *Registry) ensureScanned(processType string) {
	if r.scanned[processType] {
		return
	}
	r.scanned[processType] = true
	procs := make(map[string]*process.Process)
	r.byType[processType] = procs

	src, ok := r.sources[processType]
	if !ok {
		src = r.defaultSource
	}
	if src == nil {
		return
	}
	// 部分模板源出错时仍编译已返回的模板
	templates, err := src.Templates(processType)
	if err != nil {
		r.logger.Warn("加载工艺模板失败", "process_type", processType, "loaded", len(templates), "error", err)
	}
	for _, t := range templates {
		p, err := process.Compile(t, r.factory)
		if err != nil {
			r.logger.Warn("工艺模板无效，已排除", "process_type", processType, "process_id", t.ID, "error", err)
			continue
		}
		if _, dup := procs[p.ID()]; dup {
			r.logger.Warn("工艺 ID 重复，保留先加载的模板", "process_type", processType, "process_id", p.ID())
			continue
		}
		procs[p.ID()] = p
	}
	r.logger.Info("工艺类型加载完成", "process_type", processType, "count", len(procs))
}
