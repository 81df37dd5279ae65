// Package logger 提供 ReflectionIPAddress 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（REFLECTIP_LOG_LEVEL, REFLECTIP_LOG_FORMAT）
//   - 结构化日志
//
// 使用示例:
//
//	package resolver
//
//	import "github.com/rkttu/ReflectionIPAddress/internal/util/logger"
//
//	var log = logger.Logger("resolver")
//
//	func reflect() {
//	    log.Debug("oracle query failed", "oracle", id, "err", err)
//	    log.Info("address resolved", "addr", addr, "oracle", id)
//	}
//
// 环境变量配置:
//
//	# 所有子系统 info，resolver 子系统 debug
//	REFLECTIP_LOG_LEVEL=resolver=debug,info
//
//	# JSON 格式输出
//	REFLECTIP_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler

	// globalLogger 全局默认 Logger
	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
)

// Logger 获取指定子系统的 Logger
//
// 日志级别取自 REFLECTIP_LOG_LEVEL 环境变量。
// 同一子系统多次调用返回同一个 Logger 实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	level := cfg.LevelForSubsystem(subsystem)

	handler := newHandler(subsystem, level, cfg.Format)
	l := slog.New(handler)

	actual, _ := loggers.LoadOrStore(subsystem, l)
	if h, ok := handler.(*subsystemHandler); ok {
		handlers.Store(subsystem, h)
	}

	return actual.(*slog.Logger)
}

// GlobalLogger 返回全局 Logger
//
// 用于不属于特定子系统的日志，或作为 fx 注入的默认 Logger。
func GlobalLogger() *slog.Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = Logger("reflectionip")
	})
	return globalLogger
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// SetOutput 设置全局日志输出目标
//
// 所有 Logger 通过 dynamicWriter 间接写出，因此对已创建的
// Logger 同样生效。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
