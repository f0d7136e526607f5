package team

import (
	"context"
	"fmt"
	"time"
)

// Worker 工人
//
// 无限循环：等待组队、参与集体任务、离队、做个人任务。
// Worker 实现 actor.Actor，可以直接交给 actor.System 托管。
type Worker struct {
	role  Role
	id    int
	group *Group
	chore Task
}

// NewWorker 创建工人
//
// 事件通过 group 的 Observer 发出。
func NewWorker(role Role, id int, group *Group, chore Task) *Worker {
	return &Worker{
		role:  role,
		id:    id,
		group: group,
		chore: chore,
	}
}

// Name 返回工人名字，例如 "Elf #3"
func (w *Worker) Name() string {
	return fmt.Sprintf("%s #%d", w.role, w.id)
}

// Role 返回工人角色
func (w *Worker) Role() Role { return w.role }

// ID 返回工人编号
func (w *Worker) ID() int { return w.id }

// Group 返回所属 Group
func (w *Worker) Group() *Group { return w.group }

// Run 实现 actor.Actor 接口
//
// ctx 取消或同步点被打破时返回 nil，个人任务失败时返回该错误。
func (w *Worker) Run(ctx context.Context) error {
	w.emit(EventHired, "")
	defer w.emit(EventFired, "")

	for {
		if err := w.cycle(ctx); err != nil {
			if IsStopSignal(err) {
				return nil
			}
			return fmt.Errorf("%s: %w", w.Name(), err)
		}
	}
}

// cycle 一次完整的组队与个人任务
func (w *Worker) cycle(ctx context.Context) error {
	w.emit(EventWaiting, "")
	if err := w.group.Join(ctx); err != nil {
		return err
	}
	w.emit(EventJoined, "")

	if err := w.group.Leave(ctx); err != nil {
		return err
	}
	w.emit(EventLeft, "")

	w.emit(EventChore, w.chore.Label())
	return w.chore.Run(ctx)
}

func (w *Worker) emit(kind EventKind, label string) {
	w.group.observer.Observe(Event{
		Kind:    kind,
		Actor:   w.Name(),
		Role:    w.role,
		Group:   w.group.topic,
		GroupID: w.group.id,
		Label:   label,
		At:      time.Now(),
	})
}
