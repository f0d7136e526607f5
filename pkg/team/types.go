package team

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
)

// ═══════════════════════════════════════════════════════════════════════════
// Role 相关类型
// ═══════════════════════════════════════════════════════════════════════════

// Role 工人角色
type Role string

const (
	RoleElf      Role = "Elf"      // 小精灵
	RoleReindeer Role = "Reindeer" // 驯鹿
)

// ═══════════════════════════════════════════════════════════════════════════
// Task 相关类型
// ═══════════════════════════════════════════════════════════════════════════

// Task 不透明的工作单元
//
// Task 无状态、可重复执行，可被多个调用方共享。
type Task interface {
	// Run 执行一次任务；ctx 取消时应尽快返回 ctx.Err()
	Run(ctx context.Context) error

	// Label 返回用于叙述的描述
	Label() string
}

// SimulatedTask 模拟耗时的任务
//
// 每次执行随机等待 [0, max) 的时长，max <= 0 时立即完成。
type SimulatedTask struct {
	label string
	max   time.Duration
	rand  *Rand
}

// Simulate 创建模拟任务
func Simulate(label string, max time.Duration, r *Rand) *SimulatedTask {
	return &SimulatedTask{label: label, max: max, rand: r}
}

// Run 实现 Task 接口
func (t *SimulatedTask) Run(ctx context.Context) error {
	return actor.Sleep(ctx, t.rand.Duration(t.max))
}

// Label 实现 Task 接口
func (t *SimulatedTask) Label() string { return t.label }

// Max 返回单次执行的时长上限
func (t *SimulatedTask) Max() time.Duration { return t.max }

// String 实现 fmt.Stringer
func (t *SimulatedTask) String() string {
	return fmt.Sprintf("%s (<%s)", t.label, t.max)
}

// funcTask 函数式任务
type funcTask struct {
	label string
	fn    func(ctx context.Context) error
}

// TaskFunc 用函数创建任务
func TaskFunc(label string, fn func(ctx context.Context) error) Task {
	return &funcTask{label: label, fn: fn}
}

func (t *funcTask) Run(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

func (t *funcTask) Label() string { return t.label }

// ═══════════════════════════════════════════════════════════════════════════
// Rand 显式随机源
// ═══════════════════════════════════════════════════════════════════════════

// Rand 可设定种子、并发安全的随机源
//
// 零值不可用，nil *Rand 退化为全局随机源。
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand 使用种子创建随机源，相同种子产生相同序列
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Duration 返回 [0, max) 内的随机时长，max <= 0 时返回 0
func (r *Rand) Duration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	if r == nil {
		return rand.N(max)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.r.Int64N(int64(max)))
}

// IntN 返回 [0, n) 内的随机整数
func (r *Rand) IntN(n int) int {
	if r == nil {
		return rand.IntN(n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}
