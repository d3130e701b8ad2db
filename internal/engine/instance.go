package engine

import (
	"time"

	"github.com/google/uuid"

	"workstation-engine/internal/fsm"
	"workstation-engine/internal/persistence"
	"workstation-engine/internal/process"
	"workstation-engine/internal/types"
)

// Instance 是一个进行中（或刚结束）的工艺实例
type Instance struct {
	ID          string
	Workstation types.WorkstationID
	Instigator  types.ActorID
	ProcessID   string
	ProcessType string
	Start       time.Time
	Finish      time.Time
	Scratch     *process.Scratch

	fsm *fsm.FSM
}

func newInstance(ws types.WorkstationID, instigator types.ActorID, p *process.Process, scratch *process.Scratch, start time.Time, d time.Duration) *Instance {
	id := uuid.NewString()
	return &Instance{
		ID:          id,
		Workstation: ws,
		Instigator:  instigator,
		ProcessID:   p.ID(),
		ProcessType: p.Type(),
		Start:       start,
		Finish:      start.Add(d),
		Scratch:     scratch,
		fsm:         fsm.NewFSM(id),
	}
}

func instanceFromRecord(rec persistence.InstanceRecord) *Instance {
	scratch := rec.Scratch
	if scratch == nil {
		scratch = process.NewScratch()
	}
	return &Instance{
		ID:          rec.ID,
		Workstation: rec.Workstation,
		Instigator:  rec.Instigator,
		ProcessID:   rec.ProcessID,
		ProcessType: rec.ProcessType,
		Start:       rec.Start,
		Finish:      rec.Finish,
		Scratch:     scratch,
		fsm:         fsm.Restore(rec.ID, fsm.StateRunning),
	}
}

func (i *Instance) record() persistence.InstanceRecord {
	return persistence.InstanceRecord{
		ID:          i.ID,
		Workstation: i.Workstation,
		ProcessType: i.ProcessType,
		ProcessID:   i.ProcessID,
		Instigator:  i.Instigator,
		Start:       i.Start,
		Finish:      i.Finish,
		Scratch:     i.Scratch,
	}
}

// State 返回实例的生命周期状态
func (i *Instance) State() fsm.State {
	return i.fsm.Current()
}

// Duration 返回实例的计划时长
func (i *Instance) Duration() time.Duration {
	return i.Finish.Sub(i.Start)
}

// InstanceInfo 是实例的只读快照，用于 API 输出
type InstanceInfo struct {
	ID          string              `json:"id"`
	Workstation types.WorkstationID `json:"workstation"`
	Instigator  types.ActorID       `json:"instigator"`
	ProcessID   string              `json:"process_id"`
	ProcessType string              `json:"process_type"`
	Start       time.Time           `json:"start"`
	Finish      time.Time           `json:"finish"`
	State       fsm.State           `json:"state"`
}

// Info 返回实例快照
func (i *Instance) Info() InstanceInfo {
	return InstanceInfo{
		ID:          i.ID,
		Workstation: i.Workstation,
		Instigator:  i.Instigator,
		ProcessID:   i.ProcessID,
		ProcessType: i.ProcessType,
		Start:       i.Start,
		Finish:      i.Finish,
		State:       i.State(),
	}
}
