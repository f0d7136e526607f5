package santa

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/team"
)

// DefaultCoordinatorName 协调者默认名字
const DefaultCoordinatorName = "Santa"

// Source 交接任务来源
type Source interface {
	Take(ctx context.Context) (handoff.Task, error)
}

// TopicStats 单个 Group 主题的服务统计
type TopicStats struct {
	Topic  string
	Served uint64        // 成功完成的集体任务数
	Failed uint64        // 失败的集体任务数
	Busy   time.Duration // 成功任务的累计耗时
}

// Mean 返回成功任务的平均耗时
func (s TopicStats) Mean() time.Duration {
	if s.Served == 0 {
		return 0
	}
	return s.Busy / time.Duration(s.Served)
}

// Coordinator 单一消费者
//
// 循环：睡觉 -> 取出下一个交接任务 -> 同步执行。任意时刻最多执行一个任务。
// Coordinator 实现 actor.Actor。
type Coordinator struct {
	name     string
	queue    Source
	observer team.Observer
	logger   *slog.Logger

	stats   *actor.StatsCollector
	running atomic.Bool

	topicsMu sync.Mutex
	topics   map[string]*TopicStats
}

// CoordinatorOption Coordinator 配置选项
type CoordinatorOption func(*Coordinator)

// WithName 设置协调者名字
func WithName(name string) CoordinatorOption {
	return func(c *Coordinator) {
		c.name = name
	}
}

// WithCoordinatorObserver 设置叙述 Observer
func WithCoordinatorObserver(o team.Observer) CoordinatorOption {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// WithCoordinatorLogger 设置日志器
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator 创建协调者
func NewCoordinator(queue Source, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		name:     DefaultCoordinatorName,
		queue:    queue,
		observer: team.Observers{},
		logger:   slog.Default(),
		stats:    actor.NewStatsCollector(),
		topics:   make(map[string]*TopicStats),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.observer == nil {
		c.observer = team.Observers{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Name 返回协调者名字
func (c *Coordinator) Name() string { return c.name }

// Run 实现 actor.Actor 接口
//
// 收到停止信号时返回 nil；集体任务失败只记录，不终止循环。
// 同一个 Coordinator 不能并发运行两次。
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("coordinator %s is already running", c.name)
	}
	defer c.running.Store(false)
	defer c.emit(team.EventSantaDone)

	for {
		c.emit(team.EventSantaSleeping)

		task, err := c.queue.Take(ctx)
		if err != nil {
			if team.IsStopSignal(err) {
				return nil
			}
			return fmt.Errorf("coordinator %s: take: %w", c.name, err)
		}

		if err := c.serve(ctx, task); err != nil && team.IsStopSignal(err) {
			return nil
		}
	}
}

// serve 执行一个交接任务并记录统计
func (c *Coordinator) serve(ctx context.Context, task handoff.Task) error {
	c.stats.RecordReceived()
	c.logger.Debug("coordinator serving team",
		"coordinator", c.name,
		"group", task.Topic,
		"team", task.TeamID,
		"generation", task.Generation,
		"priority", task.Priority.String())

	if task.Run == nil {
		err := fmt.Errorf("task for group %s has no run function", task.Topic)
		c.stats.RecordError(err)
		c.record(task.Topic, 0, err)
		c.logger.Error("coordinator received empty task", "group", task.Topic, "error", err)
		return err
	}

	start := time.Now()
	err := task.Run(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.stats.RecordHandled(elapsed)
		c.record(task.Topic, elapsed, nil)
	case team.IsStopSignal(err):
		c.logger.Debug("coordinator stopped while serving", "group", task.Topic, "error", err)
	default:
		c.stats.RecordError(err)
		c.record(task.Topic, elapsed, err)
		c.logger.Error("collective action failed",
			"coordinator", c.name,
			"group", task.Topic,
			"team", task.TeamID,
			"error", err)
	}
	return err
}

func (c *Coordinator) record(topic string, elapsed time.Duration, err error) {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()

	ts, ok := c.topics[topic]
	if !ok {
		ts = &TopicStats{Topic: topic}
		c.topics[topic] = ts
	}
	if err != nil {
		ts.Failed++
		return
	}
	ts.Served++
	ts.Busy += elapsed
}

func (c *Coordinator) emit(kind team.EventKind) {
	c.observer.Observe(team.Event{
		Kind:  kind,
		Actor: c.name,
		At:    time.Now(),
	})
}

// Stats 返回协调者统计（Received = 取出的任务数，Handled = 成功完成数）
func (c *Coordinator) Stats() *actor.ActorStats {
	return c.stats.Stats()
}

// Topic 返回指定主题的统计
func (c *Coordinator) Topic(topic string) TopicStats {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()

	if ts, ok := c.topics[topic]; ok {
		return *ts
	}
	return TopicStats{Topic: topic}
}

// Topics 返回所有主题的统计，按主题排序
func (c *Coordinator) Topics() []TopicStats {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()

	result := make([]TopicStats, 0, len(c.topics))
	for _, ts := range c.topics {
		result = append(result, *ts)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Topic < result[j].Topic })
	return result
}
