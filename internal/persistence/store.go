// Package persistence 保存正在进行中的工艺实例，重启后由引擎恢复。
package persistence

import (
	"fmt"
	"time"

	"workstation-engine/internal/process"
	"workstation-engine/internal/types"
)

// InstanceRecord 是一个进行中工艺实例的持久化形式
type InstanceRecord struct {
	ID          string              `json:"id"`
	Workstation types.WorkstationID `json:"workstation"`
	ProcessType string              `json:"process_type"`
	ProcessID   string              `json:"process_id"`
	Instigator  types.ActorID       `json:"instigator"`
	Start       time.Time           `json:"start"`
	Finish      time.Time           `json:"finish"`
	Scratch     *process.Scratch    `json:"scratch,omitempty"`
}

// Store 是实例存储的接口
type Store interface {
	// Save 记录一个开工的实例
	Save(rec InstanceRecord) error
	// Remove 标记实例已完工
	Remove(id string) error
	// Load 返回所有未完工的实例，按开工时间排序
	Load() ([]InstanceRecord, error)
	Close() error
}

// Open 按驱动名称创建存储：wal、sqlite 或 none
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "none":
		return NopStore{}, nil
	case "wal":
		return NewWAL(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// NopStore 不做任何持久化
type NopStore struct{}

func (NopStore) Save(InstanceRecord) error       { return nil }
func (NopStore) Remove(string) error             { return nil }
func (NopStore) Load() ([]InstanceRecord, error) { return nil, nil }
func (NopStore) Close() error                    { return nil }
