package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"workstation-engine/internal/process"
	"workstation-engine/internal/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS instances (
	id           TEXT PRIMARY KEY,
	workstation  TEXT NOT NULL,
	process_type TEXT NOT NULL,
	process_id   TEXT NOT NULL,
	instigator   TEXT NOT NULL,
	start_ns     INTEGER NOT NULL,
	finish_ns    INTEGER NOT NULL,
	scratch      TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_instances_type ON instances(workstation, process_type);
`

// SQLiteStore 把进行中的实例保存在 SQLite 中，完工即删除
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite 打开（或创建）数据库并建表
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// SQLite 只支持单写者
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("执行 %q 失败: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("建表失败: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save 写入实例，同一工作站同一工艺类型的旧记录会被替换
func (s *SQLiteStore) Save(rec InstanceRecord) error {
	scratch, err := json.Marshal(rec.Scratch)
	if err != nil {
		return fmt.Errorf("序列化 scratch 失败: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM instances WHERE workstation = ? AND process_type = ?`,
		string(rec.Workstation), rec.ProcessType); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO instances
		(id, workstation, process_type, process_id, instigator, start_ns, finish_ns, scratch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Workstation), rec.ProcessType, rec.ProcessID, string(rec.Instigator),
		rec.Start.UnixNano(), rec.Finish.UnixNano(), string(scratch)); err != nil {
		return err
	}
	return tx.Commit()
}

// Remove 删除实例，不存在时不报错
func (s *SQLiteStore) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM instances WHERE id = ?`, id)
	return err
}

// Load 返回所有进行中的实例
func (s *SQLiteStore) Load() ([]InstanceRecord, error) {
	rows, err := s.db.Query(`SELECT id, workstation, process_type, process_id, instigator, start_ns, finish_ns, scratch
		FROM instances ORDER BY start_ns, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InstanceRecord
	for rows.Next() {
		var (
			rec            InstanceRecord
			ws, instigator string
			startNs, finNs int64
			scratch        sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ws, &rec.ProcessType, &rec.ProcessID, &instigator, &startNs, &finNs, &scratch); err != nil {
			return nil, err
		}
		rec.Workstation = types.WorkstationID(ws)
		rec.Instigator = types.ActorID(instigator)
		rec.Start = time.Unix(0, startNs)
		rec.Finish = time.Unix(0, finNs)
		if scratch.Valid && scratch.String != "" && scratch.String != "null" {
			rec.Scratch = process.NewScratch()
			if err := json.Unmarshal([]byte(scratch.String), rec.Scratch); err != nil {
				return nil, fmt.Errorf("解析实例 %s 的 scratch 失败: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
