// Package team 提供固定人数的组队原语
//
// # Overview
//
// team 包解决"凑齐 N 个工人，交给协调者执行一次集体任务，再同时放行"的问题：
//   - [Group]: 组队原语，管理准入、组队、入场、离场四个同步点
//   - [Worker]: 工人循环，实现 actor.Actor
//   - [Task]: 不透明的工作单元，[Simulate] 提供随机耗时的模拟任务
//   - [Event], [Observer]: 状态变化叙述，[LogObserver] 写入 slog，[Recorder] 用于测试
//
// # Protocol
//
// 工人侧：
//
//	Join:  准入许可 -> 凑齐 size 人 -> 与协调者入场汇合
//	Leave: 与协调者离场汇合（集体任务完成后 size 人同时放行）
//
// 第 size 个到达者在组队屏障的 trip 动作中把完成动作交给 [Dispatcher]，
// 协调者取出后执行：
//
//	入场汇合 -> 补充 size 个准入许可 -> 集体任务 -> 离场汇合
//
// 准入许可在集体任务开始前补充，下一队可以与当前集体任务并行组建，
// 但下一队的完成动作只能排队等待协调者。
//
// # Stop Signals
//
// context 取消或同步点被打破（[rendezvous.ErrBroken]）都视为停止信号，
// 见 [IsStopSignal]。Worker 收到停止信号后正常返回 nil。
//
// # Usage
//
//	queue := handoff.New()
//	deliver := team.Simulate("delivers toys", 3*time.Second, nil)
//
//	reindeer, _ := team.NewGroup("Delivery.", 9, queue, deliver,
//	    team.WithHighPriority(),
//	    team.WithObserver(team.NewLogObserver(logger)),
//	)
//
//	for i := range 9 {
//	    w := team.NewWorker(team.RoleReindeer, i+1, reindeer,
//	        team.Simulate("is on vacation", 2*time.Second, nil))
//	    sys.Spawn(w, w.Name())
//	}
//
// # Thread Safety
//
// [Group] 的所有方法都是并发安全的。[Worker] 只能在一个 goroutine 中运行。
package team
