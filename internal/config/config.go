package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"workstation-engine/internal/station"
	"workstation-engine/internal/types"
)

// Config 定义应用程序的配置结构
// 使用 mapstructure 标签来映射配置文件中的字段
type Config struct {
	TickInterval    time.Duration       `mapstructure:"tick_interval"`    // 调度循环的 tick 间隔
	RevivalInterval time.Duration       `mapstructure:"revival_interval"` // 兜底检查间隔（模拟时间）
	ListenAddr      string              `mapstructure:"listen_addr"`      // API 服务监听地址
	TemplateDirs    []string            `mapstructure:"template_dirs"`    // 工艺模板目录
	Fluids          []string            `mapstructure:"fluids"`           // 已知流体种类，为空时不校验
	Store           StoreConfig         `mapstructure:"store"`
	Inventory       InventoryConfig     `mapstructure:"inventory"`
	Workstations    []WorkstationConfig `mapstructure:"workstations"`
}

// StoreConfig 定义进行中实例的持久化方式
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // wal | sqlite | none
	Path   string `mapstructure:"path"`
}

// InventoryConfig 定义内存容器的容量
type InventoryConfig struct {
	MaxStack  int     `mapstructure:"max_stack"`
	MaxVolume float64 `mapstructure:"max_volume"`
}

// WorkstationConfig 定义一台工作站
// 注意：Viper 会把 map 的 key 转为小写，工艺类型名称统一使用小写，槽位分类在这里转回大写
type WorkstationConfig struct {
	ID        string                              `mapstructure:"id"`
	Layout    map[string]types.SlotAssignment     `mapstructure:"layout"`
	Processes map[string]types.ProcessTypeSupport `mapstructure:"processes"`
	Items     []SeedItem                          `mapstructure:"items"`  // 启动时放入的物品
	Fluids    []SeedFluid                         `mapstructure:"fluids"` // 启动时注入的流体
}

// SeedItem 是启动时放入槽位的物品
type SeedItem struct {
	Slot  int    `mapstructure:"slot"`
	Kind  string `mapstructure:"kind"`
	Count int    `mapstructure:"count"`
}

// SeedFluid 是启动时注入槽位的流体
type SeedFluid struct {
	Slot   int     `mapstructure:"slot"`
	Kind   string  `mapstructure:"kind"`
	Volume float64 `mapstructure:"volume"`
}

// Workstation 把配置转换为工作站定义
func (w WorkstationConfig) Workstation() *station.Workstation {
	layout := make(types.SlotLayout, len(w.Layout))
	for category, slots := range w.Layout {
		layout[strings.ToUpper(category)] = slots
	}
	processes := make(map[string]types.ProcessTypeSupport, len(w.Processes))
	for name, support := range w.Processes {
		processes[strings.ToLower(name)] = support
	}
	return station.NewWorkstation(types.WorkstationID(w.ID), layout, processes)
}

// LoadConfig 从配置文件加载配置，path 为空时在当前目录查找 config.yaml
// 环境变量使用 WSE_ 前缀覆盖，例如 WSE_LISTEN_ADDR、WSE_STORE_DRIVER
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // 配置文件名称 (不带扩展名)
		v.SetConfigType("yaml")   // 配置文件类型
		v.AddConfigPath(".")      // 查找配置文件的路径 (当前目录)
	}

	// 设置默认值
	v.SetDefault("tick_interval", "100ms")
	v.SetDefault("revival_interval", "10s")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("template_dirs", []string{"processes"})
	v.SetDefault("store.driver", "wal")
	v.SetDefault("store.path", "instances.wal")
	v.SetDefault("inventory.max_stack", 99)
	v.SetDefault("inventory.max_volume", 1000)

	v.SetEnvPrefix("WSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 将配置解析到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置的一致性
func (c *Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	switch c.Store.Driver {
	case "", "none", "wal", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	seen := make(map[string]bool)
	for i, ws := range c.Workstations {
		if ws.ID == "" {
			errs = append(errs, fmt.Errorf("workstations[%d]: id is empty", i))
			continue
		}
		if seen[ws.ID] {
			errs = append(errs, fmt.Errorf("workstations[%d]: duplicate id %s", i, ws.ID))
		}
		seen[ws.ID] = true
	}
	return errors.Join(errs...)
}

// KnownFluid 返回流体种类校验函数，未配置流体列表时返回 nil
func (c *Config) KnownFluid() func(string) bool {
	if len(c.Fluids) == 0 {
		return nil
	}
	known := make(map[string]bool, len(c.Fluids))
	for _, f := range c.Fluids {
		known[f] = true
	}
	return func(kind string) bool { return known[kind] }
}
