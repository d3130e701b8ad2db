package process

import (
	"fmt"
	"sort"
	"sync"
)

// PartConstructor 根据部件声明创建部件
type PartConstructor func(spec PartSpec, env Env) (Part, error)

// Factory 保存部件种类到构造器的映射，并向部件注入运行依赖
type Factory struct {
	mu    sync.RWMutex
	env   Env
	ctors map[string]PartConstructor
}

// NewFactory 创建带内置部件的工厂
func NewFactory(env Env) *Factory {
	f := &Factory{env: env, ctors: make(map[string]PartConstructor)}
	f.Register("item_input", func(s PartSpec, env Env) (Part, error) {
		return NewItemInputPart(s.Category, s.Items, env), nil
	})
	f.Register("item_output", func(s PartSpec, env Env) (Part, error) {
		return NewItemOutputPart(s.Category, s.Items, env), nil
	})
	f.Register("fluid_input", func(s PartSpec, env Env) (Part, error) {
		return NewFluidInputPart(s.Category, s.Fluids, env), nil
	})
	f.Register("fluid_output", func(s PartSpec, env Env) (Part, error) {
		return NewFluidOutputPart(s.Category, s.Fluids, env), nil
	})
	f.Register("fluid_container_fill", func(s PartSpec, env Env) (Part, error) {
		return NewFluidContainerFillPart(s.Containers, env), nil
	})
	f.Register("duration", func(s PartSpec, _ Env) (Part, error) {
		return NewDurationPart(s.Duration.Std()), nil
	})
	f.Register("duration_scale", func(s PartSpec, _ Env) (Part, error) {
		return NewDurationScalePart(s.Factor, s.Add.Std(), s.Expr), nil
	})
	f.Register("rule", func(s PartSpec, _ Env) (Part, error) {
		return NewRulePart(s.Expr), nil
	})
	return f
}

// Register 注册（或覆盖）一种部件
func (f *Factory) Register(kind string, ctor PartConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[kind] = ctor
}

// Kinds 返回已注册的部件种类
func (f *Factory) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	kinds := make([]string, 0, len(f.ctors))
	for k := range f.ctors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Env 返回注入给部件的依赖
func (f *Factory) Env() Env {
	return f.env
}

// Build 创建单个部件，声明了 sort 时包装为自定义排序
func (f *Factory) Build(spec PartSpec) (Part, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[spec.Kind]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown process part kind %q", spec.Kind)
	}
	part, err := ctor(spec, f.env)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", spec.Kind, err)
	}
	if spec.Sort != nil {
		return &sortOverride{Part: part, order: *spec.Sort}, nil
	}
	return part, nil
}

// sortOverride 让模板覆盖部件默认的排序权重
type sortOverride struct {
	Part
	order int
}

func (s *sortOverride) SortOrder() int { return s.order }
