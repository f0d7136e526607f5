package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBroken 屏障已损坏，等待中的参与者无法再凑齐
var ErrBroken = errors.New("rendezvous: barrier is broken")

// generation 屏障的一代
//
// done 在本代放行或损坏时关闭，broken 区分两种情况。
type generation struct {
	done   chan struct{}
	broken bool
}

func newGeneration() *generation {
	return &generation{done: make(chan struct{})}
}

// Barrier 循环屏障
//
// Thread Safety: Barrier 是并发安全的。
type Barrier struct {
	parties int
	action  func()

	mu      sync.Mutex
	waiting int
	gen     *generation
	trips   uint64
}

// New 创建 parties 方参与的屏障
//
// action 可以为 nil；非 nil 时由最后一个到达者在放行其他参与者之前执行，
// 每一代恰好执行一次。action 在屏障内部锁中运行，不能阻塞，
// 也不能再次调用同一个屏障的方法。
func New(parties int, action func()) *Barrier {
	if parties < 1 {
		panic(fmt.Sprintf("rendezvous: parties must be positive, got %d", parties))
	}
	return &Barrier{
		parties: parties,
		action:  action,
		gen:     newGeneration(),
	}
}

// Await 到达汇合点并等待其余参与者
//
// 返回到达序号：parties-1 表示第一个到达，0 表示最后一个（触发者）。
// ctx 在本代放行前取消时，屏障损坏并返回 ctx.Err()；
// 本代已放行之后才观察到的取消不视为失败。
func (b *Barrier) Await(ctx context.Context) (int, error) {
	b.mu.Lock()
	g := b.gen

	if g.broken {
		b.mu.Unlock()
		return -1, ErrBroken
	}

	if err := ctx.Err(); err != nil {
		b.breakLocked()
		b.mu.Unlock()
		return -1, err
	}

	b.waiting++
	index := b.parties - b.waiting

	// 最后一个到达者：执行 trip 动作并开启下一代
	if index == 0 {
		if err := b.runAction(); err != nil {
			b.breakLocked()
			b.mu.Unlock()
			return -1, err
		}
		b.nextLocked()
		b.mu.Unlock()
		return 0, nil
	}
	b.mu.Unlock()

	select {
	case <-g.done:
		if g.broken {
			return -1, ErrBroken
		}
		return index, nil

	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()

		if g == b.gen && !g.broken {
			b.breakLocked()
			return -1, ctx.Err()
		}
		if g.broken {
			return -1, ErrBroken
		}
		// 取消与放行同时发生，本代已经完成
		return index, nil
	}
}

// Break 主动损坏当前代，唤醒所有等待者
func (b *Barrier) Break() {
	b.mu.Lock()
	b.breakLocked()
	b.mu.Unlock()
}

// Reset 重置屏障
//
// 当前代若仍有等待者，它们将收到 ErrBroken；随后屏障恢复可用。
func (b *Barrier) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.breakLocked()
	b.gen = newGeneration()
	b.waiting = 0
}

// Parties 返回参与方数量
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting 返回当前代已到达、尚未放行的参与者数量
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting
}

// IsBroken 检查屏障是否处于损坏状态
func (b *Barrier) IsBroken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen.broken
}

// Trips 返回屏障成功放行的代数
func (b *Barrier) Trips() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// runAction 执行 trip 动作，panic 转换为错误
func (b *Barrier) runAction() (err error) {
	if b.action == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rendezvous: trip action panicked: %v", r)
		}
	}()
	b.action()
	return nil
}

// nextLocked 放行当前代并开启下一代（调用方持有锁）
func (b *Barrier) nextLocked() {
	close(b.gen.done)
	b.gen = newGeneration()
	b.waiting = 0
	b.trips++
}

// breakLocked 损坏当前代（调用方持有锁）
func (b *Barrier) breakLocked() {
	if b.gen.broken {
		return
	}
	b.gen.broken = true
	b.waiting = 0
	close(b.gen.done)
}
