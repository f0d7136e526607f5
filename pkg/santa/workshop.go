package santa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/team"
)

// ═══════════════════════════════════════════════════════════════════════════
// GroupSpec 配置
// ═══════════════════════════════════════════════════════════════════════════

// GroupSpec 一类工人及其 Group 的描述
type GroupSpec struct {
	Role       team.Role
	Topic      string
	Quorum     int // 每队人数
	Population int // 工人总数
	Priority   handoff.Priority

	ActionLabel string        // 集体任务叙述，例如 "delivers toys."
	ActionMax   time.Duration // 集体任务耗时上限
	ChoreLabel  string        // 个人任务叙述
	ChoreMax    time.Duration // 个人任务耗时上限
}

// Validate 检查 GroupSpec 是否可用
func (s GroupSpec) Validate() error {
	var errs []error
	if s.Role == "" {
		errs = append(errs, errors.New("role is required"))
	}
	if s.Quorum < 1 {
		errs = append(errs, fmt.Errorf("quorum must be positive, got %d", s.Quorum))
	}
	if s.Population < 0 {
		errs = append(errs, fmt.Errorf("population cannot be negative, got %d", s.Population))
	}
	if s.ActionMax < 0 {
		errs = append(errs, fmt.Errorf("action max cannot be negative, got %s", s.ActionMax))
	}
	if s.ChoreMax < 0 {
		errs = append(errs, fmt.Errorf("chore max cannot be negative, got %s", s.ChoreMax))
	}
	if len(errs) > 0 {
		return fmt.Errorf("group %s: %w", s.Role, errors.Join(errs...))
	}
	return nil
}

// ReindeerSpec 默认的驯鹿配置：9 只凑齐一队，高优先级
func ReindeerSpec() GroupSpec {
	return GroupSpec{
		Role:        team.RoleReindeer,
		Topic:       "Delivery.",
		Quorum:      9,
		Population:  9,
		Priority:    handoff.PriorityHigh,
		ActionLabel: "delivers toys.",
		ActionMax:   3000 * time.Millisecond,
		ChoreLabel:  "is on vacation.",
		ChoreMax:    2000 * time.Millisecond,
	}
}

// ElfSpec 默认的小精灵配置：3 个凑齐一队，普通优先级
func ElfSpec() GroupSpec {
	return GroupSpec{
		Role:        team.RoleElf,
		Topic:       "Meeting.",
		Quorum:      3,
		Population:  10,
		Priority:    handoff.PriorityLow,
		ActionLabel: "designs toys.",
		ActionMax:   1500 * time.Millisecond,
		ChoreLabel:  "builds toys.",
		ChoreMax:    2000 * time.Millisecond,
	}
}

// DefaultGroupSpecs 返回默认配置：驯鹿在前
func DefaultGroupSpecs() []GroupSpec {
	return []GroupSpec{ReindeerSpec(), ElfSpec()}
}

// ═══════════════════════════════════════════════════════════════════════════
// Workshop
// ═══════════════════════════════════════════════════════════════════════════

// Workshop 组装并托管整个模拟
//
// 创建共享交接队列、每个 GroupSpec 对应的 Group 与工人、一个 Coordinator，
// 并把工人与 Coordinator 作为 Actor 运行在同一个 actor.System 上。
type Workshop struct {
	specs       []GroupSpec
	system      *actor.System
	queue       *handoff.Queue
	groups      []*team.Group
	workers     []*team.Worker
	coordinator *Coordinator

	observer team.Observer
	logger   *slog.Logger
	rand     *team.Rand

	started atomic.Bool
}

// WorkshopOption Workshop 配置选项
type WorkshopOption func(*workshopOptions)

type workshopOptions struct {
	observer team.Observer
	logger   *slog.Logger
	rand     *team.Rand
	grace    time.Duration
}

// WithObserver 设置叙述 Observer，同时用于所有 Group 与 Coordinator
func WithObserver(o team.Observer) WorkshopOption {
	return func(w *workshopOptions) {
		w.observer = o
	}
}

// WithLogger 设置日志器
func WithLogger(logger *slog.Logger) WorkshopOption {
	return func(w *workshopOptions) {
		w.logger = logger
	}
}

// WithSeed 使用固定种子生成任务耗时（0 表示不固定）
func WithSeed(seed uint64) WorkshopOption {
	return func(w *workshopOptions) {
		if seed != 0 {
			w.rand = team.NewRand(seed)
		}
	}
}

// WithShutdownTimeout 设置 Shutdown 的默认等待时长
func WithShutdownTimeout(d time.Duration) WorkshopOption {
	return func(w *workshopOptions) {
		w.grace = d
	}
}

// NewWorkshop 根据 GroupSpec 创建 Workshop
//
// 每个 Role 与 Topic 最多出现一次；Topic 为空时使用 Role。工人名字由 Role 与序号组成。
func NewWorkshop(specs []GroupSpec, opts ...WorkshopOption) (*Workshop, error) {
	if len(specs) == 0 {
		return nil, errors.New("workshop needs at least one group")
	}

	o := &workshopOptions{
		logger: slog.Default(),
		grace:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = team.NewLogObserver(o.logger)
	}

	specs = append([]GroupSpec(nil), specs...)
	roles := make(map[team.Role]bool, len(specs))
	topics := make(map[string]bool, len(specs))
	for i := range specs {
		if specs[i].Topic == "" {
			specs[i].Topic = string(specs[i].Role)
		}
		spec := specs[i]
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if roles[spec.Role] {
			return nil, fmt.Errorf("duplicate role %s", spec.Role)
		}
		if topics[spec.Topic] {
			return nil, fmt.Errorf("duplicate topic %q", spec.Topic)
		}
		roles[spec.Role] = true
		topics[spec.Topic] = true
	}

	sysConfig := actor.DefaultSystemConfig()
	sysConfig.Logger = o.logger
	sysConfig.ShutdownTimeout = o.grace

	w := &Workshop{
		specs:    specs,
		system:   actor.NewSystemWithConfig("workshop", sysConfig),
		queue:    handoff.New(),
		observer: o.observer,
		logger:   o.logger,
		rand:     o.rand,
	}

	for _, spec := range specs {
		action := team.Simulate(spec.ActionLabel, spec.ActionMax, w.rand)
		g, err := team.NewGroup(spec.Topic, spec.Quorum, w.queue, action,
			team.WithPriority(spec.Priority),
			team.WithObserver(w.observer),
		)
		if err != nil {
			w.system.Shutdown()
			return nil, err
		}
		w.groups = append(w.groups, g)

		chore := team.Simulate(spec.ChoreLabel, spec.ChoreMax, w.rand)
		for i := range spec.Population {
			w.workers = append(w.workers, team.NewWorker(spec.Role, i+1, g, chore))
		}
	}

	w.coordinator = NewCoordinator(w.queue,
		WithCoordinatorObserver(w.observer),
		WithCoordinatorLogger(w.logger),
	)

	return w, nil
}

// Start 启动 Coordinator 与所有工人，只能调用一次
func (w *Workshop) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("workshop already started")
	}

	if _, err := w.system.Spawn(w.coordinator, w.coordinator.Name()); err != nil {
		return fmt.Errorf("spawn coordinator: %w", err)
	}
	for _, worker := range w.workers {
		if _, err := w.system.Spawn(worker, worker.Name()); err != nil {
			return fmt.Errorf("spawn %s: %w", worker.Name(), err)
		}
	}

	w.logger.Info("workshop started",
		"groups", len(w.groups),
		"workers", len(w.workers))
	return nil
}

// Run 启动模拟，运行 d（或直到 ctx 结束），然后取消所有 Actor 并最多等待 grace
//
// 返回运行报告；grace 内仍未退出的 Actor 被放弃，Report.Clean 为 false。
func (w *Workshop) Run(ctx context.Context, d, grace time.Duration) (*Report, error) {
	start := time.Now()
	if err := w.Start(); err != nil {
		w.Shutdown(grace)
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		w.logger.Info("workshop interrupted", "error", ctx.Err())
	}

	clean := w.Shutdown(grace)
	return w.report(time.Since(start), clean), nil
}

// Shutdown 取消所有 Actor，最多等待 grace；返回是否全部退出
func (w *Workshop) Shutdown(grace time.Duration) bool {
	clean := w.system.ShutdownWithTimeout(grace)
	if !clean {
		w.logger.Warn("workshop shutdown timed out, abandoning actors",
			"remaining", w.system.Count(),
			"grace", grace)
	}
	return clean
}

// Groups 返回所有 Group（与 GroupSpec 顺序一致）
func (w *Workshop) Groups() []*team.Group { return w.groups }

// Workers 返回所有工人
func (w *Workshop) Workers() []*team.Worker { return w.workers }

// Coordinator 返回协调者
func (w *Workshop) Coordinator() *Coordinator { return w.coordinator }

// Queue 返回共享交接队列
func (w *Workshop) Queue() *handoff.Queue { return w.queue }

// System 返回托管 Actor 的运行时
func (w *Workshop) System() *actor.System { return w.system }

// ═══════════════════════════════════════════════════════════════════════════
// Report 运行报告
// ═══════════════════════════════════════════════════════════════════════════

// GroupReport 单个 Group 的运行结果
type GroupReport struct {
	Role       team.Role
	Topic      string
	Priority   handoff.Priority
	Quorum     int
	Population int
	Teams      uint64        // 组建完成的队伍数
	Served     uint64        // 成功完成的集体任务数
	Failed     uint64        // 失败的集体任务数
	MeanAction time.Duration // 平均集体任务耗时
}

// Report 一次运行的汇总
type Report struct {
	Elapsed time.Duration
	Clean   bool // 所有 Actor 是否在 grace 内退出
	Groups  []GroupReport
	Santa   *actor.ActorStats
	System  actor.SystemStats
}

func (w *Workshop) report(elapsed time.Duration, clean bool) *Report {
	r := &Report{
		Elapsed: elapsed,
		Clean:   clean,
		Groups:  make([]GroupReport, 0, len(w.groups)),
		Santa:   w.coordinator.Stats(),
		System:  *w.system.Stats(),
	}

	for i, g := range w.groups {
		spec := w.specs[i]
		ts := w.coordinator.Topic(g.Topic())
		r.Groups = append(r.Groups, GroupReport{
			Role:       spec.Role,
			Topic:      g.Topic(),
			Priority:   g.Priority(),
			Quorum:     g.Size(),
			Population: spec.Population,
			Teams:      g.Generation(),
			Served:     ts.Served,
			Failed:     ts.Failed,
			MeanAction: ts.Mean(),
		})
	}
	return r
}
