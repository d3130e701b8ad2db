package persistence

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
)

// LogEntry 代表 WAL 文件中的一条日志记录
type LogEntry struct {
	Type     string          `json:"type"`                  // 日志类型: "START" (开工) 或 "FINISH" (完工)
	Instance *InstanceRecord `json:"instance,omitempty"`    // 开工时包含完整的实例数据
	ID       string          `json:"instance_id,omitempty"` // 完工时只包含实例 ID
}

// WAL (Write-Ahead Log) 以 JSON 行的形式追加记录实例的开工和完工
type WAL struct {
	file *os.File   // 日志文件句柄
	mu   sync.Mutex // 互斥锁，保证文件写入的原子性
}

// NewWAL 创建或打开一个 WAL 文件
func NewWAL(path string) (*WAL, error) {
	// O_APPEND: 追加写入, O_CREATE: 文件不存在则创建, O_RDWR: 读写模式
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Save 将开工的实例写入日志
func (w *WAL) Save(rec InstanceRecord) error {
	return w.append(LogEntry{Type: "START", Instance: &rec})
}

// Remove 在日志中标记实例已完工
func (w *WAL) Remove(id string) error {
	return w.append(LogEntry{Type: "FINISH", ID: id})
}

func (w *WAL) append(entry LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// 写入数据并在末尾添加换行符
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return err
	}
	// 确保数据被刷新到磁盘，防止数据丢失
	return w.file.Sync()
}

// Load 从日志文件中恢复未完工的实例
// 在系统启动时调用
func (w *WAL) Load() ([]InstanceRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 将文件指针移动到开头以进行读取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	started := make(map[string]InstanceRecord)
	finished := make(map[string]bool)

	scanner := bufio.NewScanner(w.file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// 忽略损坏的行
			continue
		}

		switch entry.Type {
		case "START":
			if entry.Instance != nil {
				started[entry.Instance.ID] = *entry.Instance
			}
		case "FINISH":
			finished[entry.ID] = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// 找出所有已开工但未完工的实例
	var recovered []InstanceRecord
	for id, rec := range started {
		if !finished[id] {
			recovered = append(recovered, rec)
		}
	}
	sortRecords(recovered)

	// 恢复文件指针到末尾，以便后续追加写入
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	return recovered, nil
}

// Close 关闭 WAL 文件
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func sortRecords(recs []InstanceRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Start.Equal(recs[j].Start) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Start.Before(recs[j].Start)
	})
}
