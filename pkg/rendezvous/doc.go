// Package rendezvous 提供可复用的循环屏障（cyclic barrier）
//
// [Barrier] 让固定数量（parties）的参与者在同一个汇合点相互等待：
// 最后一个到达者触发一次可选的 trip 动作，随后所有参与者同时放行，
// 屏障自动进入下一代（generation），可以立即再次使用。
//
// # 损坏语义
//
// 任意等待者因 context 取消而离开时，当前代被标记为损坏：
//   - 同代的其他等待者立即返回 [ErrBroken]
//   - 之后的到达者也立即返回 [ErrBroken]（损坏状态是粘性的）
//   - 只有 [Barrier.Reset] 才能让屏障重新可用
//
// # Usage
//
//	b := rendezvous.New(3, func() {
//	    fmt.Println("all three arrived")
//	})
//
//	// 在 3 个 goroutine 中分别调用
//	if _, err := b.Await(ctx); err != nil {
//	    return err // context 错误或 ErrBroken
//	}
package rendezvous
