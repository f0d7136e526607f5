package santa

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/rendezvous"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/team"
)

// runAsync 在后台运行 Coordinator，返回结果通道
func runAsync(ctx context.Context, c *Coordinator) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
		return nil
	}
}

func TestCoordinator_StopsOnCancel(t *testing.T) {
	rec := team.NewRecorder()
	c := NewCoordinator(handoff.New(), WithCoordinatorObserver(rec))
	assert.Equal(t, DefaultCoordinatorName, c.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)

	require.Eventually(t, func() bool {
		return rec.Count(team.EventSantaSleeping, "") == 1
	}, time.Second, time.Millisecond)
	cancel()

	assert.NoError(t, waitResult(t, done))

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Santa sleeps.", events[0].Message())
	assert.Equal(t, "Santa is done.", events[1].Message())
}

func TestCoordinator_PriorityOrder(t *testing.T) {
	q := handoff.New()

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	// 小精灵先排队，驯鹿后到
	q.Put(handoff.Task{Topic: "Meeting.", Priority: handoff.PriorityLow, Run: record("elves-1")})
	q.Put(handoff.Task{Topic: "Meeting.", Priority: handoff.PriorityLow, Run: record("elves-2")})
	q.Put(handoff.Task{Topic: "Delivery.", Priority: handoff.PriorityHigh, Run: record("reindeer")})

	c := NewCoordinator(q)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)

	require.Eventually(t, func() bool { return c.Stats().Handled == 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitResult(t, done))

	assert.Equal(t, []string{"reindeer", "elves-1", "elves-2"}, order)
	assert.Equal(t, uint64(1), c.Topic("Delivery.").Served)
	assert.Equal(t, uint64(2), c.Topic("Meeting.").Served)
}

func TestCoordinator_FailureContinues(t *testing.T) {
	q := handoff.New()
	boom := errors.New("sleigh is broken")

	q.Put(handoff.Task{Topic: "Delivery.", Run: func(context.Context) error { return boom }})
	q.Put(handoff.Task{Topic: "Delivery.", Run: func(context.Context) error { return nil }})
	q.Put(handoff.Task{Topic: "Meeting."})

	c := NewCoordinator(q)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)

	require.Eventually(t, func() bool { return c.Stats().Received == 3 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return q.Len() == 0 && c.Stats().Errors == 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitResult(t, done))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Handled)
	assert.Equal(t, int64(2), stats.Errors)

	delivery := c.Topic("Delivery.")
	assert.Equal(t, uint64(1), delivery.Served)
	assert.Equal(t, uint64(1), delivery.Failed)

	topics := c.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, "Delivery.", topics[0].Topic)
	assert.Equal(t, "Meeting.", topics[1].Topic)
}

func TestCoordinator_StopSignalFromTask(t *testing.T) {
	q := handoff.New()
	q.Put(handoff.Task{Topic: "Meeting.", Run: func(context.Context) error {
		return rendezvous.ErrBroken
	}})

	c := NewCoordinator(q)
	err := waitResult(t, runAsync(context.Background(), c))
	assert.NoError(t, err)
	assert.Equal(t, int64(0), c.Stats().Errors)
}

func TestCoordinator_AlreadyRunning(t *testing.T) {
	c := NewCoordinator(handoff.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c)
	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)

	assert.Error(t, c.Run(ctx))

	cancel()
	assert.NoError(t, waitResult(t, done))
}

// 两个 Group 同时向同一个 Coordinator 交接，集体任务从不重叠
func TestCoordinator_ActionsNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var active, maxActive atomic.Int32
	action := func(label string) team.Task {
		return team.TaskFunc(label, func(ctx context.Context) error {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				cur := maxActive.Load()
				if n <= cur || maxActive.CompareAndSwap(cur, n) {
					break
				}
			}
			return team.Simulate(label, time.Millisecond, nil).Run(ctx)
		})
	}

	q := handoff.New()
	reindeer, err := team.NewGroup("Delivery.", 3, q, action("delivers toys."), team.WithHighPriority())
	require.NoError(t, err)
	elves, err := team.NewGroup("Meeting.", 2, q, action("designs toys."))
	require.NoError(t, err)

	c := NewCoordinator(q)
	done := runAsync(ctx, c)

	var wg sync.WaitGroup
	spawn := func(role team.Role, n int, g *team.Group) {
		for i := range n {
			w := team.NewWorker(role, i+1, g, team.Simulate("rests", time.Millisecond, nil))
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = w.Run(ctx)
			}()
		}
	}
	spawn(team.RoleReindeer, 3, reindeer)
	spawn(team.RoleElf, 5, elves)

	require.Eventually(t, func() bool {
		return c.Topic("Delivery.").Served >= 5 && c.Topic("Meeting.").Served >= 5
	}, 5*time.Second, time.Millisecond)
	cancel()

	assert.NoError(t, waitResult(t, done))
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

// hire 在后台启动 n 个工人
func hire(ctx context.Context, wg *sync.WaitGroup, role team.Role, n int, g *team.Group, chore team.Task) {
	for i := range n {
		w := team.NewWorker(role, i+1, g, chore)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}
}

// 一次集体任务失败之后，两个 Group 都继续被服务
func TestCoordinator_GroupFailureKeepsServing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("workbench collapsed")
	var meetings atomic.Int32
	q := handoff.New()

	reindeer, err := team.NewGroup("Delivery.", 1, q, team.Simulate("delivers toys.", 0, nil), team.WithHighPriority())
	require.NoError(t, err)
	elves, err := team.NewGroup("Meeting.", 1, q, team.TaskFunc("designs toys.", func(context.Context) error {
		if meetings.Add(1) == 1 {
			return boom
		}
		return nil
	}))
	require.NoError(t, err)

	c := NewCoordinator(q)
	done := runAsync(ctx, c)

	rest := team.TaskFunc("rests", func(ctx context.Context) error {
		return actor.Sleep(ctx, time.Millisecond)
	})
	var wg sync.WaitGroup
	hire(ctx, &wg, team.RoleReindeer, 1, reindeer, rest)
	hire(ctx, &wg, team.RoleElf, 3, elves, rest)

	require.Eventually(t, func() bool {
		return c.Topic("Delivery.").Served >= 20 && c.Topic("Meeting.").Served >= 5
	}, 5*time.Second, time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("coordinator exited early: %v", err)
	default:
	}

	assert.Equal(t, uint64(1), c.Topic("Meeting.").Failed)
	assert.Equal(t, uint64(0), c.Topic("Delivery.").Failed)
	assert.Equal(t, int64(1), c.Stats().Errors)

	cancel()
	assert.NoError(t, waitResult(t, done))
	wg.Wait()
}

// 小精灵先凑齐一队、驯鹿后凑齐一队，Santa 醒来后先服务驯鹿
func TestCoordinator_ReindeerBeforeElves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := team.NewRecorder()
	q := handoff.New()

	reindeer, err := team.NewGroup("Delivery.", 9, q, team.Simulate("delivers toys.", 0, nil),
		team.WithHighPriority(), team.WithObserver(rec))
	require.NoError(t, err)
	elves, err := team.NewGroup("Meeting.", 3, q, team.Simulate("designs toys.", 0, nil),
		team.WithObserver(rec))
	require.NoError(t, err)

	// 个人任务一直持续到停止，每个工人只参加一次集体任务
	vacation := team.TaskFunc("is on vacation.", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	var wg sync.WaitGroup
	hire(ctx, &wg, team.RoleElf, 3, elves, vacation)
	require.Eventually(t, func() bool { return q.Len() == 1 }, 2*time.Second, time.Millisecond)
	hire(ctx, &wg, team.RoleReindeer, 9, reindeer, vacation)
	require.Eventually(t, func() bool { return q.Len() == 2 }, 2*time.Second, time.Millisecond)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "Delivery.", pending[0].Topic)
	assert.Equal(t, handoff.PriorityHigh, pending[0].Priority)
	assert.Equal(t, "Meeting.", pending[1].Topic)
	assert.Equal(t, handoff.PriorityLow, pending[1].Priority)

	c := NewCoordinator(q, WithCoordinatorObserver(rec))
	done := runAsync(ctx, c)

	require.Eventually(t, func() bool {
		return rec.Count(team.EventChore, "") == 12
	}, 2*time.Second, time.Millisecond)

	var actions []string
	for _, e := range rec.Events() {
		switch e.Kind {
		case team.EventActionStarted, team.EventActionFinished:
			actions = append(actions, string(e.Kind)+" "+e.Group)
		}
	}
	assert.Equal(t, []string{
		"santa.action_started Delivery.",
		"santa.action_finished Delivery.",
		"santa.action_started Meeting.",
		"santa.action_finished Meeting.",
	}, actions)

	cancel()
	assert.NoError(t, waitResult(t, done))
	wg.Wait()
}
