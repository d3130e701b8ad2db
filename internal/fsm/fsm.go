package fsm

import (
	"fmt"
	"sync"
)

// State 定义状态类型
type State string

// Event 定义事件类型
type Event string

const (
	StateCreated  State = "CREATED"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
)

const (
	EventStart  Event = "START"
	EventFinish Event = "FINISH"
)

// FSM 是工艺实例的生命周期状态机
type FSM struct {
	current State
	mu      sync.Mutex
	// transitions 定义状态转移表: CurrentState -> Event -> NextState
	transitions map[State]map[Event]State
	TargetID    string // 关联的实例 ID
}

func NewFSM(targetID string) *FSM {
	return newFSM(targetID, StateCreated)
}

// Restore 创建一个处于指定状态的状态机，用于从持久化记录恢复实例
func Restore(targetID string, state State) *FSM {
	return newFSM(targetID, state)
}

func newFSM(targetID string, state State) *FSM {
	fsm := &FSM{
		current:     state,
		TargetID:    targetID,
		transitions: make(map[State]map[Event]State),
	}
	fsm.initTransitions()
	return fsm
}

func (f *FSM) initTransitions() {
	f.addTransition(StateCreated, EventStart, StateRunning)
	f.addTransition(StateRunning, EventFinish, StateFinished)
}

func (f *FSM) addTransition(from State, event Event, to State) {
	if _, ok := f.transitions[from]; !ok {
		f.transitions[from] = make(map[Event]State)
	}
	f.transitions[from][event] = to
}

// Current 返回当前状态
func (f *FSM) Current() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Fire 触发事件
func (f *FSM) Fire(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// 查找合法的转移
	nextState, ok := f.transitions[f.current][event]
	if !ok {
		return fmt.Errorf("invalid transition: cannot fire event %s from state %s", event, f.current)
	}
	f.current = nextState
	return nil
}
