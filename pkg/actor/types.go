// Package actor 提供长期运行 Actor 的轻量级运行时
//
// 每个 Actor 是一个独立的 goroutine：
//   - 拥有自己的 context，可单独停止
//   - 运行到 context 取消或自行返回为止
//   - panic 被恢复并记录，不影响其他 Actor
//
// 设计原则:
//   - 最小化依赖，仅使用标准库
//   - 关闭是单向的：取消、短暂等待、然后放弃
package actor

import (
	"context"
	"fmt"
)

// Actor Actor 接口
// 实现此接口即可被 System 托管
type Actor interface {
	// Run 运行 Actor 主循环，直到 ctx 取消或出错
	// 因 ctx 取消而退出时应返回 nil 或 context 错误
	Run(ctx context.Context) error
}

// ActorFunc 函数式 Actor，便于快速创建简单 Actor
type ActorFunc func(ctx context.Context) error

// Run 实现 Actor 接口
func (f ActorFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PID (Process ID) Actor 进程标识符
type PID struct {
	// ID Actor 唯一标识
	ID string

	// system 所属的 Actor 系统（内部使用）
	system *System
	cell   *actorCell
}

// String 返回 PID 的字符串表示
func (p *PID) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.ID
}

// Stop 停止 Actor（取消其 context，不等待）
func (p *PID) Stop() {
	if p != nil && p.system != nil {
		p.system.Stop(p)
	}
}

// Done 返回在 Actor 退出后关闭的通道
func (p *PID) Done() <-chan struct{} {
	return p.cell.done
}

// Err 返回 Actor 退出时的错误（context 错误不计入）
// Actor 仍在运行时返回 nil
func (p *PID) Err() error {
	p.cell.stateMu.RLock()
	defer p.cell.stateMu.RUnlock()
	return p.cell.err
}

// State 返回 Actor 当前状态
func (p *PID) State() State {
	p.cell.stateMu.RLock()
	defer p.cell.stateMu.RUnlock()
	return p.cell.state
}

// State Actor 运行状态
type State int

const (
	StateIdle     State = iota // 已创建，尚未运行
	StateRunning               // 运行中
	StateStopping              // 已请求停止
	StateStopped               // 已退出
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PanicError Actor panic 后返回的错误
type PanicError struct {
	Actor string
	Value any
	Stack string
}

// Error 实现 error 接口
func (e *PanicError) Error() string {
	return fmt.Sprintf("actor %s panicked: %v", e.Actor, e.Value)
}
