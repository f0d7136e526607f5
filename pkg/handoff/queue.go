// Package handoff 提供 Group 与 Coordinator 之间的交接队列
//
// 队列分两级：高优先级任务总是先于低优先级任务被取出，
// 同一级内保持先进先出。Put 永不阻塞，Take 阻塞直到有任务或 context 结束。
package handoff

import (
	"context"
	"sync"
)

// Priority 任务优先级
type Priority int

const (
	PriorityLow  Priority = iota // 普通（排在队尾）
	PriorityHigh                 // 高优先级（排在所有普通任务之前）
)

// String 返回优先级名称
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Task 一个已组队完成、等待 Coordinator 执行的任务
type Task struct {
	GroupID    string
	Topic      string
	TeamID     string
	Generation uint64
	Priority   Priority

	// Run 由 Coordinator 同步执行
	Run func(ctx context.Context) error
}

// Queue 两级优先级交接队列
//
// Thread Safety: 支持多个生产者并发 Put，Take 面向单一消费者设计，
// 多个消费者同时 Take 也是安全的。
type Queue struct {
	mu   sync.Mutex
	high []Task
	low  []Task

	// signal 容量为 1，用于唤醒等待中的消费者
	signal chan struct{}
}

// New 创建空队列
func New() *Queue {
	return &Queue{
		high:   make([]Task, 0),
		low:    make([]Task, 0),
		signal: make(chan struct{}, 1),
	}
}

// Put 按任务优先级入队，永不阻塞
func (q *Queue) Put(t Task) {
	q.mu.Lock()
	if t.Priority == PriorityHigh {
		q.high = append(q.high, t)
	} else {
		q.low = append(q.low, t)
	}
	q.mu.Unlock()

	q.notify()
}

// Take 取出下一个任务，队列为空时阻塞
func (q *Queue) Take(ctx context.Context) (Task, error) {
	for {
		if t, ok := q.TryTake(); ok {
			return t, nil
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return Task{}, ctx.Err()
		}
	}
}

// TryTake 非阻塞取出下一个任务
func (q *Queue) TryTake() (Task, bool) {
	q.mu.Lock()

	var t Task
	switch {
	case len(q.high) > 0:
		t = q.high[0]
		q.high[0] = Task{}
		q.high = q.high[1:]
	case len(q.low) > 0:
		t = q.low[0]
		q.low[0] = Task{}
		q.low = q.low[1:]
	default:
		q.mu.Unlock()
		return Task{}, false
	}
	remaining := len(q.high) + len(q.low)
	q.mu.Unlock()

	// 还有剩余任务时把信号传给下一个消费者
	if remaining > 0 {
		q.notify()
	}
	return t, true
}

// Len 返回排队中的任务数量
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high) + len(q.low)
}

// Pending 按出队顺序返回排队任务的快照
func (q *Queue) Pending() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]Task, 0, len(q.high)+len(q.low))
	result = append(result, q.high...)
	result = append(result, q.low...)
	return result
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
