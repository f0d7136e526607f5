package actor_test

import (
	"context"
	"fmt"
	"time"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
)

// Example_basic 演示 Actor 系统的基本使用
func Example_basic() {
	// 创建 Actor 系统
	sys := actor.NewSystem("example")

	// 使用 ActorFunc 快速创建 Actor
	pid, _ := sys.Spawn(actor.ActorFunc(func(ctx context.Context) error {
		fmt.Println("Actor started")
		<-ctx.Done()
		fmt.Println("Actor cancelled")
		return ctx.Err()
	}), "greeter")

	time.Sleep(10 * time.Millisecond)

	// 停止并等待退出
	_ = sys.StopGracefully(pid, time.Second)
	sys.Shutdown()

	// Output:
	// Actor started
	// Actor cancelled
}

// Example_shutdown 演示带超时的系统关闭
func Example_shutdown() {
	sys := actor.NewSystem("shutdown-example")

	for i := range 3 {
		_, _ = sys.Spawn(actor.ActorFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}), fmt.Sprintf("worker-%d", i))
	}
	fmt.Println("running:", sys.Count())

	ok := sys.ShutdownWithTimeout(time.Second)
	fmt.Println("clean exit:", ok)
	fmt.Println("running:", sys.Count())

	// Output:
	// running: 3
	// clean exit: true
	// running: 0
}
