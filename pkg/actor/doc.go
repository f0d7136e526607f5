// Package actor 提供长期运行 Actor 的轻量级运行时
//
// Actor 在这里是一个拥有独立 context 的 goroutine，循环执行自己的工作：
// • 由 [System] 统一启动、登记和关闭
// • 单独的 Actor 可以通过 [PID.Stop] 停止
// • panic 被恢复并记录为 [PanicError]，不会拖垮整个进程
//
// # 核心组件
//
// [System] 是 Actor 系统的入口，管理所有 Actor 的生命周期：
//
//	sys := actor.NewSystem("north-pole")
//	defer sys.Shutdown()
//
// [Actor] 接口定义运行行为，[ActorFunc] 提供函数式快捷方式。
//
// [PID] 是 Actor 的唯一标识，[PID.Done] 在 Actor 退出后关闭，
// [PID.Err] 返回非 context 类的退出错误。
//
// # 关闭语义
//
// [System.ShutdownWithTimeout] 取消所有 Actor 的 context，然后最多等待给定时长。
// 没有协商式的关闭握手：超时后仍未退出的 Actor 被直接放弃，
// 返回值 false 告知调用方这一情况。
//
// # 统计
//
// [StatsCollector] 记录任务接收/处理/错误次数与处理延迟，供 Actor 自行使用。
//
// 完整使用示例请参考 example_test.go 或运行 go doc -all。
package actor
