package team

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/handoff"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/rendezvous"
)

func TestWorker_Name(t *testing.T) {
	g, err := NewGroup("Meeting.", 3, handoff.New(), instant("meets elves"))
	require.NoError(t, err)

	w := NewWorker(RoleElf, 7, g, instant("makes toys"))
	assert.Equal(t, "Elf #7", w.Name())
	assert.Equal(t, RoleElf, w.Role())
	assert.Equal(t, 7, w.ID())
	assert.Same(t, g, w.Group())
}

func TestWorker_CycleNarration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := NewRecorder()
	q := handoff.New()
	g, err := NewGroup("Delivery.", 1, q, instant("delivers toys"), WithObserver(rec))
	require.NoError(t, err)
	go consume(ctx, q)

	w := NewWorker(RoleReindeer, 1, g, instant("is on vacation"))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return g.Generation() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	// 只看这只驯鹿自己的叙述
	var kinds []EventKind
	for _, e := range rec.Events() {
		if e.Actor == "Reindeer #1" {
			kinds = append(kinds, e.Kind)
		}
	}
	require.GreaterOrEqual(t, len(kinds), 7)
	assert.Equal(t, []EventKind{
		EventHired, EventWaiting, EventJoined, EventLeft, EventChore, EventWaiting,
	}, kinds[:6])
	assert.Equal(t, EventFired, kinds[len(kinds)-1])

	chores := rec.Filter(EventChore)
	require.NotEmpty(t, chores)
	assert.Equal(t, "is on vacation", chores[0].Label)
	assert.Equal(t, "Reindeer #1 is on vacation", chores[0].Message())
}

func TestWorker_ChoreFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := handoff.New()
	g, err := NewGroup("Meeting.", 1, q, instant("meets elves"))
	require.NoError(t, err)
	go consume(ctx, q)

	boom := errors.New("hammer broke")
	w := NewWorker(RoleElf, 2, g, TaskFunc("makes toys", func(context.Context) error {
		return boom
	}))

	err = w.Run(ctx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Elf #2")
}

func TestIsStopSignal(t *testing.T) {
	assert.True(t, IsStopSignal(context.Canceled))
	assert.True(t, IsStopSignal(context.DeadlineExceeded))
	assert.True(t, IsStopSignal(rendezvous.ErrBroken))
	assert.True(t, IsStopSignal(errors.Join(errors.New("leave"), rendezvous.ErrBroken)))
	assert.False(t, IsStopSignal(errors.New("other")))
	assert.False(t, IsStopSignal(nil))
}

func TestEventMessage(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Kind: EventHired, Actor: "Elf #1"}, "Elf #1 is hired."},
		{Event{Kind: EventWaiting, Actor: "Elf #1"}, "Elf #1 waits for Santa."},
		{Event{Kind: EventJoined, Actor: "Elf #1", Group: "Meeting."}, "Elf #1 is in Meeting."},
		{Event{Kind: EventLeft, Actor: "Elf #1", Group: "Meeting."}, "Elf #1 leaves Meeting."},
		{Event{Kind: EventFired, Actor: "Elf #1"}, "Elf #1 is fired."},
		{Event{Kind: EventTeamFormed, Group: "Delivery.", Generation: 2}, "Team 2 for Delivery. is complete."},
		{Event{Kind: EventActionStarted, Actor: "Santa", Label: "delivers toys"}, "Santa delivers toys"},
		{Event{Kind: EventActionFinished, Actor: "Santa", Group: "Delivery."}, "Santa finished Delivery."},
		{Event{Kind: EventActionFinished, Actor: "Santa", Group: "Delivery.", Err: errors.New("boom")}, "Santa failed Delivery.: boom"},
		{Event{Kind: EventActionFinished, Actor: "Santa", Group: "Delivery.", Err: context.Canceled}, "Santa stopped Delivery."},
		{Event{Kind: EventSantaSleeping, Actor: "Santa"}, "Santa sleeps."},
		{Event{Kind: EventSantaDone, Actor: "Santa"}, "Santa is done."},
		{Event{Kind: "custom"}, "custom"},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Message())
		})
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	obs := NewLogObserver(logger).WithLevel(slog.LevelDebug)
	obs.Observe(Event{Kind: EventJoined, Actor: "Elf #1", Group: "Meeting.", TeamID: "t-1", Generation: 4})
	obs.Observe(Event{Kind: EventActionFinished, Actor: "Santa", Group: "Meeting.", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="Elf #1 is in Meeting."`)
	assert.Contains(t, out, "generation=4")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=boom")
}

func TestLogObserver_StopSignalNotWarned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	obs := NewLogObserver(logger)
	obs.Observe(Event{Kind: EventActionFinished, Actor: "Santa", Group: "Delivery.", Err: context.Canceled})
	obs.Observe(Event{Kind: EventActionFinished, Actor: "Santa", Group: "Meeting.", Err: rendezvous.ErrBroken})

	out := buf.String()
	assert.NotContains(t, out, "level=WARN")
	assert.Equal(t, 2, strings.Count(out, "level=INFO"))
	assert.Contains(t, out, `msg="Santa stopped Delivery."`)
}

func TestObservers(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	fan := Observers{a, nil, b}

	fan.Observe(Event{Kind: EventHired})
	fan.Observe(Event{Kind: EventFired})

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.Filter(EventFired), 1)

	a.Reset()
	assert.Empty(t, a.Events())
}

func TestRand(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for range 10 {
		assert.Equal(t, a.Duration(time.Second), b.Duration(time.Second))
	}

	assert.Equal(t, time.Duration(0), a.Duration(0))
	assert.Equal(t, time.Duration(0), a.Duration(-time.Second))

	var global *Rand
	d := global.Duration(time.Millisecond)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Less(t, d, time.Millisecond)
	assert.Less(t, global.IntN(5), 5)
}

func TestSimulate(t *testing.T) {
	task := Simulate("makes toys", time.Millisecond, NewRand(1))
	assert.Equal(t, "makes toys", task.Label())
	assert.Equal(t, time.Millisecond, task.Max())
	assert.Equal(t, "makes toys (<1ms)", task.String())
	assert.NoError(t, task.Run(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := Simulate("sleeps", time.Hour, NewRand(1))
	// 随机时长可能为 0，此时立即完成
	if err := slow.Run(ctx); err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
