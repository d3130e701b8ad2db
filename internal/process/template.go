package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Template 是不可变的工艺定义，通常来自 YAML 文件
type Template struct {
	ID    string     `yaml:"id" json:"id"`
	Type  string     `yaml:"type" json:"type"`
	Name  string     `yaml:"name,omitempty" json:"name,omitempty"`
	Level int        `yaml:"level,omitempty" json:"level,omitempty"`
	Parts []PartSpec `yaml:"parts" json:"parts"`
}

// PartSpec 是部件的声明，Kind 决定使用哪个构造器，其余字段按部件类型取用
type PartSpec struct {
	Kind       string           `yaml:"kind" json:"kind"`
	Sort       *int             `yaml:"sort,omitempty" json:"sort,omitempty"`
	Category   string           `yaml:"category,omitempty" json:"category,omitempty"`
	Items      []ItemAmount     `yaml:"items,omitempty" json:"items,omitempty"`
	Fluids     []FluidAmount    `yaml:"fluids,omitempty" json:"fluids,omitempty"`
	Containers []FluidContainer `yaml:"containers,omitempty" json:"containers,omitempty"` // 只用于 fluid_container_fill
	Duration   Duration         `yaml:"duration,omitempty" json:"duration,omitempty"`
	Factor     float64          `yaml:"factor,omitempty" json:"factor,omitempty"`
	Add        Duration         `yaml:"add,omitempty" json:"add,omitempty"`
	Expr       string           `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// ItemAmount 是模板中的物品数量
type ItemAmount struct {
	Kind  string `yaml:"kind" json:"kind"`
	Count int    `yaml:"count" json:"count"`
}

// FluidAmount 是模板中的流体体积
type FluidAmount struct {
	Kind   string  `yaml:"kind" json:"kind"`
	Volume float64 `yaml:"volume" json:"volume"`
}

// FluidContainer 描述一种装满流体的容器物品，倒空后变成 Empty（为空时容器被销毁）
type FluidContainer struct {
	Full   string  `yaml:"full" json:"full"`
	Empty  string  `yaml:"empty,omitempty" json:"empty,omitempty"`
	Fluid  string  `yaml:"fluid" json:"fluid"`
	Volume float64 `yaml:"volume" json:"volume"`
}

// Duration 支持 "5s" 形式的字符串，纯数字按毫秒解析
type Duration time.Duration

// UnmarshalYAML 实现 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", node.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 返回标准库的 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// templateFile 允许一个文件用 processes 列表声明多个工艺
type templateFile struct {
	Processes []Template `yaml:"processes"`
}

// ParseTemplates 解析 YAML 内容，支持多文档、processes 列表和单个模板三种写法
func ParseTemplates(data []byte) ([]Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Template
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析工艺模板失败: %w", err)
		}
		var file templateFile
		if err := node.Decode(&file); err == nil && len(file.Processes) > 0 {
			out = append(out, file.Processes...)
			continue
		}
		var t Template
		if err := node.Decode(&t); err != nil {
			return nil, fmt.Errorf("解析工艺模板失败: %w", err)
		}
		if t.ID == "" && t.Type == "" && len(t.Parts) == 0 {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
