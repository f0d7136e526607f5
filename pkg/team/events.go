package team

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventKind 事件类型
type EventKind string

const (
	EventHired          EventKind = "worker.hired"   // 工人入职
	EventWaiting        EventKind = "worker.waiting" // 等待组队
	EventJoined         EventKind = "worker.joined"  // 已入队，Santa 已接手
	EventLeft           EventKind = "worker.left"    // 集体任务结束，离队
	EventChore          EventKind = "worker.chore"   // 开始个人任务
	EventFired          EventKind = "worker.fired"   // 工人退出循环
	EventTeamFormed     EventKind = "team.formed"    // 凑齐一队，已交给 Santa
	EventActionStarted  EventKind = "santa.action_started"
	EventActionFinished EventKind = "santa.action_finished"
	EventSantaSleeping  EventKind = "santa.sleeping"
	EventSantaDone      EventKind = "santa.done"
)

// Event 状态变化记录
type Event struct {
	Kind       EventKind
	Actor      string // "Elf #3"、"Santa"
	Role       Role
	Group      string // Group 主题
	GroupID    string
	TeamID     string
	Generation uint64
	Label      string        // 任务描述
	Duration   time.Duration // 集体任务耗时（仅 EventActionFinished）
	Err        error
	At         time.Time
}

// Message 返回事件的叙述文本
func (e Event) Message() string {
	switch e.Kind {
	case EventHired:
		return fmt.Sprintf("%s is hired.", e.Actor)
	case EventWaiting:
		return fmt.Sprintf("%s waits for Santa.", e.Actor)
	case EventJoined:
		return fmt.Sprintf("%s is in %s", e.Actor, e.Group)
	case EventLeft:
		return fmt.Sprintf("%s leaves %s", e.Actor, e.Group)
	case EventChore:
		return fmt.Sprintf("%s %s", e.Actor, e.Label)
	case EventFired:
		return fmt.Sprintf("%s is fired.", e.Actor)
	case EventTeamFormed:
		return fmt.Sprintf("Team %d for %s is complete.", e.Generation, e.Group)
	case EventActionStarted:
		return fmt.Sprintf("%s %s", e.Actor, e.Label)
	case EventActionFinished:
		switch {
		case e.Err == nil:
			return fmt.Sprintf("%s finished %s", e.Actor, e.Group)
		case IsStopSignal(e.Err):
			return fmt.Sprintf("%s stopped %s", e.Actor, e.Group)
		default:
			return fmt.Sprintf("%s failed %s: %v", e.Actor, e.Group, e.Err)
		}
	case EventSantaSleeping:
		return fmt.Sprintf("%s sleeps.", e.Actor)
	case EventSantaDone:
		return fmt.Sprintf("%s is done.", e.Actor)
	default:
		return string(e.Kind)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Observer 叙述接口
// ═══════════════════════════════════════════════════════════════════════════

// Observer 接收状态变化事件
//
// Observe 可能在内部锁中被调用，实现不能阻塞。
type Observer interface {
	Observe(e Event)
}

// ObserverFunc 函数式 Observer
type ObserverFunc func(e Event)

// Observe 实现 Observer 接口
func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers 扇出到多个 Observer
type Observers []Observer

// Observe 实现 Observer 接口
func (obs Observers) Observe(e Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// LogObserver 把事件写入 slog
type LogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogObserver 创建日志 Observer，logger 为 nil 时使用 slog.Default()
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger, level: slog.LevelInfo}
}

// WithLevel 设置事件的日志级别
func (o *LogObserver) WithLevel(level slog.Level) *LogObserver {
	o.level = level
	return o
}

// Observe 实现 Observer 接口
func (o *LogObserver) Observe(e Event) {
	attrs := []any{"kind", string(e.Kind), "actor", e.Actor}
	if e.Group != "" {
		attrs = append(attrs, "group", e.Group)
	}
	if e.TeamID != "" {
		attrs = append(attrs, "team", e.TeamID, "generation", e.Generation)
	}
	if e.Kind == EventActionFinished {
		attrs = append(attrs, "duration", e.Duration)
	}

	level := o.level
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
		// 停机中断不算失败
		if !IsStopSignal(e.Err) {
			level = slog.LevelWarn
		}
	}
	o.logger.Log(context.Background(), level, e.Message(), attrs...)
}

// Recorder 记录所有事件，用于断言顺序
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder 创建 Recorder
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0)}
}

// Observe 实现 Observer 接口
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events 返回事件副本（按记录顺序）
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Event, len(r.events))
	copy(result, r.events)
	return result
}

// Filter 返回指定类型的事件
func (r *Recorder) Filter(kinds ...EventKind) []Event {
	want := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	result := make([]Event, 0)
	for _, e := range r.Events() {
		if want[e.Kind] {
			result = append(result, e)
		}
	}
	return result
}

// Count 返回指定类型、指定 Group 的事件数量，group 为空表示任意
func (r *Recorder) Count(kind EventKind, group string) int {
	count := 0
	for _, e := range r.Filter(kind) {
		if group == "" || e.Group == group {
			count++
		}
	}
	return count
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}
