package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/config"
)

// parseLevel 把配置中的日志级别转换为 slog.Level，未知值按 info 处理
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger 根据配置创建日志器
//
// format 为 "json" 时输出 JSON，其余情况输出 text。
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
