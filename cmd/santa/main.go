// Package main 是 santa 命令行入口
//
// 运行一次 Santa Claus 模拟：
//
//	santa --duration 10s --elves 12 --log-level debug
//	santa config show
package main

import (
	"context"
	"os"

	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(viper.New()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
