package team

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/rendezvous"
)

// Coordinator 在 Group 中的名字
const coordinatorName = "Santa"

// Dispatcher 接收组队完成后的交接任务
//
// Put 不能阻塞：它在组队屏障的 trip 动作中被调用。
type Dispatcher interface {
	Put(t handoff.Task)
}

// Group 组队原语
//
// Group 把恰好 size 个工人凑成一队，把集体任务交给 Coordinator，
// 集体任务完成后同时放行这 size 个工人，然后为下一队复位。
//
// 内部由四个互相独立的同步点组成：
//   - admission: 容量为 size 的准入信号量，每队只补充一次
//   - assembly:  size 方屏障，第 size 个到达者把集体任务交给 Coordinator
//   - entry:     size+1 方屏障，工人与 Coordinator 同时确认"已组队"
//   - exit:      size+1 方屏障，工人与 Coordinator 同时确认"已完成"
//
// Thread Safety: Group 是并发安全的。
type Group struct {
	// 基本信息
	id       string
	topic    string
	size     int
	priority handoff.Priority

	// 集体任务与交接
	action   Task
	queue    Dispatcher
	observer Observer

	// 同步原语
	admission *semaphore.Weighted
	assembly  *rendezvous.Barrier
	entry     *rendezvous.Barrier
	exit      *rendezvous.Barrier

	// 状态
	generation atomic.Uint64
	admitted   atomic.Int64 // 已拿到准入许可、尚未补充的工人数
}

// Option Group 配置选项
type Option func(*Group)

// WithID 设置 Group ID（默认随机 UUID）
func WithID(id string) Option {
	return func(g *Group) {
		g.id = id
	}
}

// WithPriority 设置交接优先级
func WithPriority(p handoff.Priority) Option {
	return func(g *Group) {
		g.priority = p
	}
}

// WithHighPriority 设置为高优先级（排在普通 Group 之前）
func WithHighPriority() Option {
	return WithPriority(handoff.PriorityHigh)
}

// WithObserver 设置事件 Observer
func WithObserver(o Observer) Option {
	return func(g *Group) {
		g.observer = o
	}
}

// NewGroup 创建 Group
//
// topic 用于叙述，size 是每队人数，queue 接收组队完成后的交接任务，
// action 是 Coordinator 为每队执行的集体任务。
func NewGroup(topic string, size int, queue Dispatcher, action Task, opts ...Option) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("group %q: team size must be positive, got %d", topic, size)
	}
	if queue == nil {
		return nil, fmt.Errorf("group %q: dispatcher cannot be nil", topic)
	}
	if action == nil {
		return nil, fmt.Errorf("group %q: action cannot be nil", topic)
	}

	g := &Group{
		id:        uuid.NewString(),
		topic:     topic,
		size:      size,
		priority:  handoff.PriorityLow,
		action:    action,
		queue:     queue,
		observer:  nopObserver{},
		admission: semaphore.NewWeighted(int64(size)),
		entry:     rendezvous.New(size+1, nil),
		exit:      rendezvous.New(size+1, nil),
	}
	g.assembly = rendezvous.New(size, g.dispatch)

	for _, opt := range opts {
		opt(g)
	}
	if g.observer == nil {
		g.observer = nopObserver{}
	}

	return g, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 工人侧操作
// ═══════════════════════════════════════════════════════════════════════════

// Join 加入当前正在组建的队伍
//
// 依次等待：准入许可、凑齐 size 人、与 Coordinator 的入场汇合。
// 返回时 Coordinator 已经接手这一队。
func (g *Group) Join(ctx context.Context) error {
	if err := g.admission.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("group %s: admission: %w", g.topic, err)
	}
	g.admitted.Add(1)

	if _, err := g.assembly.Await(ctx); err != nil {
		return fmt.Errorf("group %s: assemble: %w", g.topic, err)
	}
	if _, err := g.entry.Await(ctx); err != nil {
		return fmt.Errorf("group %s: enter: %w", g.topic, err)
	}
	return nil
}

// Leave 离开队伍
//
// 阻塞到集体任务结束、全队 size 人一起放行。
// 集体任务失败不影响放行，失败只由 Coordinator 记录。
func (g *Group) Leave(ctx context.Context) error {
	if _, err := g.exit.Await(ctx); err != nil {
		return fmt.Errorf("group %s: leave: %w", g.topic, err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Coordinator 侧操作
// ═══════════════════════════════════════════════════════════════════════════

// dispatch 组队屏障的 trip 动作：打包集体任务并交给 Coordinator
//
// 在第 size 个到达者的 goroutine 中、屏障锁内执行。
func (g *Group) dispatch() {
	gen := g.generation.Add(1)
	teamID := uuid.NewString()

	g.emit(Event{
		Kind:       EventTeamFormed,
		Actor:      coordinatorName,
		TeamID:     teamID,
		Generation: gen,
	})

	g.queue.Put(handoff.Task{
		GroupID:    g.id,
		Topic:      g.topic,
		TeamID:     teamID,
		Generation: gen,
		Priority:   g.priority,
		Run: func(ctx context.Context) error {
			return g.serve(ctx, teamID, gen)
		},
	})
}

// serve 由 Coordinator 执行的完成动作
//
// 入场汇合后立即补充准入许可，下一队可以在本队集体任务进行期间开始组建。
// 集体任务返回普通错误时仍与本队汇合放行，错误随后返回给 Coordinator；
// 只有停止信号才会损坏 exit 屏障。
func (g *Group) serve(ctx context.Context, teamID string, gen uint64) error {
	if _, err := g.entry.Await(ctx); err != nil {
		return fmt.Errorf("group %s: couple team %d: %w", g.topic, gen, err)
	}

	// 先扣减计数再释放，保证 admitted 不会超过 size
	g.admitted.Add(-int64(g.size))
	g.admission.Release(int64(g.size))

	g.emit(Event{
		Kind:       EventActionStarted,
		Actor:      coordinatorName,
		TeamID:     teamID,
		Generation: gen,
		Label:      g.action.Label(),
	})

	start := time.Now()
	err := g.action.Run(ctx)

	g.emit(Event{
		Kind:       EventActionFinished,
		Actor:      coordinatorName,
		TeamID:     teamID,
		Generation: gen,
		Label:      g.action.Label(),
		Duration:   time.Since(start),
		Err:        err,
	})

	if IsStopSignal(err) {
		// 本队工人不会再等到放行
		g.exit.Break()
		return fmt.Errorf("group %s: team %d action %q: %w", g.topic, gen, g.action.Label(), err)
	}

	// 集体任务失败也照常放行本队，exit 屏障留给下一队使用
	if _, werr := g.exit.Await(ctx); werr != nil {
		return fmt.Errorf("group %s: release team %d: %w", g.topic, gen, werr)
	}
	if err != nil {
		return fmt.Errorf("group %s: team %d action %q: %w", g.topic, gen, g.action.Label(), err)
	}
	return nil
}

func (g *Group) emit(e Event) {
	e.Group = g.topic
	e.GroupID = g.id
	e.At = time.Now()
	g.observer.Observe(e)
}

// ═══════════════════════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════════════════════

// ID 返回 Group 唯一标识
func (g *Group) ID() string { return g.id }

// Topic 返回 Group 主题
func (g *Group) Topic() string { return g.topic }

// String 实现 fmt.Stringer
func (g *Group) String() string { return g.topic }

// Size 返回每队人数
func (g *Group) Size() int { return g.size }

// Priority 返回交接优先级
func (g *Group) Priority() handoff.Priority { return g.priority }

// Action 返回集体任务
func (g *Group) Action() Task { return g.action }

// Generation 返回已组建完成的队伍数
func (g *Group) Generation() uint64 { return g.generation.Load() }

// Admitted 返回已拿到准入许可、尚未被补充的工人数
//
// 该值始终在 [0, Size()] 之间。
func (g *Group) Admitted() int { return int(g.admitted.Load()) }

// Observer 返回 Group 使用的 Observer
func (g *Group) Observer() Observer { return g.observer }
