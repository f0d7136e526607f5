// Package metrics 把 team 事件转换为 Prometheus 指标
//
// [Collector] 实现 team.Observer，可以与 team.LogObserver 一起放进 team.Observers。
// 指标注册在 Collector 自己的 Registry 上，不依赖全局 DefaultRegisterer。
package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/team"
)

// DefaultNamespace 指标名前缀
const DefaultNamespace = "santa"

// 集体任务结果标签
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultCancelled = "cancelled" // 停机时被中断
)

// Collector 基于事件的指标收集器
//
// Thread Safety: Collector 是并发安全的。
type Collector struct {
	registry *prometheus.Registry

	teamsFormed    *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	workersBusy    *prometheus.GaugeVec
	workersRunning *prometheus.GaugeVec

	// 正在队伍中的工人 -> Group 主题，用于工人退出时修正 busy
	mu   sync.Mutex
	busy map[string]string
}

// New 创建 Collector，namespace 为空时使用 DefaultNamespace
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		teamsFormed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teams_formed_total",
			Help:      "Teams assembled and handed to the coordinator.",
		}, []string{"group"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Collective actions run by the coordinator.",
		}, []string{"group", "result"}),
		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of successful collective actions.",
			Buckets:   []float64{.001, .01, .1, .25, .5, 1, 2, 3, 5},
		}, []string{"group"}),
		workersBusy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Workers currently between join and leave.",
		}, []string{"group"}),
		workersRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_running",
			Help:      "Workers currently running their loop.",
		}, []string{"role"}),
		busy: make(map[string]string),
	}
}

// Observe 实现 team.Observer 接口
func (c *Collector) Observe(e team.Event) {
	switch e.Kind {
	case team.EventHired:
		c.workersRunning.WithLabelValues(string(e.Role)).Inc()

	case team.EventFired:
		c.workersRunning.WithLabelValues(string(e.Role)).Dec()
		c.leave(e.Actor)

	case team.EventJoined:
		c.mu.Lock()
		c.busy[e.Actor] = e.Group
		c.mu.Unlock()
		c.workersBusy.WithLabelValues(e.Group).Inc()

	case team.EventLeft:
		c.leave(e.Actor)

	case team.EventTeamFormed:
		c.teamsFormed.WithLabelValues(e.Group).Inc()

	case team.EventActionFinished:
		switch {
		case e.Err == nil:
			c.actions.WithLabelValues(e.Group, ResultOK).Inc()
			c.actionDuration.WithLabelValues(e.Group).Observe(e.Duration.Seconds())
		case team.IsStopSignal(e.Err):
			c.actions.WithLabelValues(e.Group, ResultCancelled).Inc()
		default:
			c.actions.WithLabelValues(e.Group, ResultError).Inc()
		}
	}
}

// leave 工人离开队伍（正常离队或中途退出）
func (c *Collector) leave(actor string) {
	c.mu.Lock()
	group, ok := c.busy[actor]
	delete(c.busy, actor)
	c.mu.Unlock()

	if ok {
		c.workersBusy.WithLabelValues(group).Dec()
	}
}

// Registry 返回指标所在的 Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText 以 Prometheus 文本格式输出当前所有指标
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
