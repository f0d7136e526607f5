package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// System Actor 系统
// 管理所有 Actor 的生命周期
type System struct {
	// 基本信息
	name string

	// Actor 注册表
	actors   map[string]*actorCell
	actorsMu sync.RWMutex

	// 生命周期控制
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning atomic.Bool

	// 配置
	config *SystemConfig

	// 统计信息
	stats *SystemStats

	// 日志
	logger *slog.Logger
}

// SystemConfig 系统配置
type SystemConfig struct {
	// ShutdownTimeout Shutdown 等待 Actor 退出的最长时间
	ShutdownTimeout time.Duration
	// PanicHandler panic 处理函数
	PanicHandler func(actor *PID, err any)
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultSystemConfig 默认系统配置
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		ShutdownTimeout: 2 * time.Second,
		PanicHandler:    nil, // 使用默认处理
		Logger:          nil, // 使用默认 logger
	}
}

// SystemStats 系统统计
type SystemStats struct {
	TotalActors int64 // 当前运行的 Actor 数
	Spawned     int64 // 累计启动的 Actor 数
	Failed      int64 // 以非 context 错误退出的 Actor 数
	Panics      int64 // panic 次数
	StartTime   time.Time
}

// actorCell Actor 单元，包含 Actor 及其运行时状态
type actorCell struct {
	pid   *PID
	actor Actor

	// 状态
	state   State
	err     error
	stateMu sync.RWMutex
	done    chan struct{}

	// 上下文
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSystem 创建新的 Actor 系统
func NewSystem(name string) *System {
	return NewSystemWithConfig(name, DefaultSystemConfig())
}

// NewSystemWithConfig 使用配置创建 Actor 系统
func NewSystemWithConfig(name string, config *SystemConfig) *System {
	if config == nil {
		config = DefaultSystemConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &System{
		name:   name,
		actors: make(map[string]*actorCell),
		ctx:    ctx,
		cancel: cancel,
		config: config,
		logger: logger,
		stats: &SystemStats{
			StartTime: time.Now(),
		},
	}

	s.isRunning.Store(true)

	s.logger.Info("actor system started", "name", name)
	return s
}

// Name 返回系统名称
func (s *System) Name() string {
	return s.name
}

// Context 返回系统根 context，Shutdown 时取消
func (s *System) Context() context.Context {
	return s.ctx
}

// Spawn 创建并启动 Actor
func (s *System) Spawn(actor Actor, name string) (*PID, error) {
	if actor == nil {
		return nil, fmt.Errorf("actor cannot be nil")
	}
	if name == "" {
		return nil, fmt.Errorf("actor name cannot be empty")
	}
	if !s.isRunning.Load() {
		return nil, fmt.Errorf("actor system %s is not running", s.name)
	}

	s.actorsMu.Lock()
	defer s.actorsMu.Unlock()

	// 检查名称是否已存在
	if _, exists := s.actors[name]; exists {
		return nil, fmt.Errorf("actor %s already exists", name)
	}

	ctx, cancel := context.WithCancel(s.ctx)

	cell := &actorCell{
		actor:  actor,
		state:  StateIdle,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	cell.pid = &PID{ID: name, system: s, cell: cell}

	// 注册
	s.actors[name] = cell
	atomic.AddInt64(&s.stats.TotalActors, 1)
	atomic.AddInt64(&s.stats.Spawned, 1)

	// 启动 Actor 主循环
	s.wg.Add(1)
	go s.actorLoop(cell)

	s.logger.Debug("spawned actor", "name", name)
	return cell.pid, nil
}

// Stop 停止 Actor（不等待）
func (s *System) Stop(pid *PID) {
	if pid == nil || pid.cell == nil {
		return
	}
	cell := pid.cell

	cell.stateMu.Lock()
	if cell.state != StateStopped {
		cell.state = StateStopping
	}
	cell.stateMu.Unlock()

	cell.cancel()
}

// StopGracefully 停止 Actor 并等待其退出
func (s *System) StopGracefully(pid *PID, timeout time.Duration) error {
	s.Stop(pid)

	select {
	case <-pid.Done():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for actor %s to stop", pid.ID)
	}
}

// Shutdown 关闭整个 Actor 系统
func (s *System) Shutdown() bool {
	return s.ShutdownWithTimeout(s.config.ShutdownTimeout)
}

// ShutdownWithTimeout 带超时的关闭
//
// 取消所有 Actor 的 context，最多等待 timeout。
// 返回 false 表示仍有 Actor 未退出，调用方应直接放弃它们。
func (s *System) ShutdownWithTimeout(timeout time.Duration) bool {
	s.logger.Info("actor system shutting down", "name", s.name)

	s.isRunning.Store(false)

	s.actorsMu.RLock()
	for _, cell := range s.actors {
		cell.stateMu.Lock()
		if cell.state != StateStopped {
			cell.state = StateStopping
		}
		cell.stateMu.Unlock()
	}
	s.actorsMu.RUnlock()

	// 取消上下文
	s.cancel()

	// 等待所有 goroutine 完成
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("actor system shutdown complete", "name", s.name)
		return true
	case <-time.After(timeout):
		s.logger.Warn("actor system shutdown timeout, forcing exit",
			"name", s.name, "remaining", s.Count())
		return false
	}
}

// Wait 阻塞直到所有 Actor 退出
func (s *System) Wait() {
	s.wg.Wait()
}

// actorLoop Actor 运行循环
func (s *System) actorLoop(cell *actorCell) {
	defer s.wg.Done()
	defer s.cleanupActor(cell)

	cell.stateMu.Lock()
	if cell.state == StateIdle {
		cell.state = StateRunning
	}
	cell.stateMu.Unlock()

	err := s.runActor(cell)

	switch {
	case err == nil:
		s.logger.Debug("actor finished", "actor", cell.pid.ID)
	case IsContextError(err):
		s.logger.Debug("actor cancelled", "actor", cell.pid.ID)
	default:
		atomic.AddInt64(&s.stats.Failed, 1)
		cell.stateMu.Lock()
		cell.err = err
		cell.stateMu.Unlock()
		s.logger.Error("actor failed", "actor", cell.pid.ID, "error", err)
	}
}

// runActor 运行 Actor，panic 转换为 PanicError
func (s *System) runActor(cell *actorCell) (err error) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&s.stats.Panics, 1)
			stack := string(debug.Stack())
			if s.config.PanicHandler != nil {
				s.config.PanicHandler(cell.pid, r)
			} else {
				s.logger.Error("panic in actor",
					"actor", cell.pid.ID,
					"error", r,
					"stack", stack)
			}
			err = &PanicError{Actor: cell.pid.ID, Value: r, Stack: stack}
		}
	}()

	return cell.actor.Run(cell.ctx)
}

// cleanupActor 清理 Actor
func (s *System) cleanupActor(cell *actorCell) {
	cell.stateMu.Lock()
	cell.state = StateStopped
	cell.stateMu.Unlock()

	// 从注册表中移除
	s.actorsMu.Lock()
	delete(s.actors, cell.pid.ID)
	s.actorsMu.Unlock()

	// 取消上下文
	cell.cancel()
	close(cell.done)

	atomic.AddInt64(&s.stats.TotalActors, -1)
	s.logger.Debug("actor stopped", "actor", cell.pid.ID)
}

// Stats 获取统计信息
func (s *System) Stats() *SystemStats {
	return &SystemStats{
		TotalActors: atomic.LoadInt64(&s.stats.TotalActors),
		Spawned:     atomic.LoadInt64(&s.stats.Spawned),
		Failed:      atomic.LoadInt64(&s.stats.Failed),
		Panics:      atomic.LoadInt64(&s.stats.Panics),
		StartTime:   s.stats.StartTime,
	}
}

// GetActor 获取 Actor
func (s *System) GetActor(name string) (*PID, bool) {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	if cell, ok := s.actors[name]; ok {
		return cell.pid, true
	}
	return nil, false
}

// ListActors 按名称顺序列出所有运行中的 Actor
func (s *System) ListActors() []*PID {
	s.actorsMu.RLock()
	pids := make([]*PID, 0, len(s.actors))
	for _, cell := range s.actors {
		pids = append(pids, cell.pid)
	}
	s.actorsMu.RUnlock()

	sort.Slice(pids, func(i, j int) bool { return pids[i].ID < pids[j].ID })
	return pids
}

// Count 返回 Actor 数量
func (s *System) Count() int {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()
	return len(s.actors)
}

// IsRunning 检查系统是否运行中
func (s *System) IsRunning() bool {
	return s.isRunning.Load()
}
