package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// componentKey 组件属性名，与 pkg/lib/log.LazyLogger 一致
const componentKey = "component"

// componentHandler 按组件过滤级别的 slog.Handler
//
// LazyLogger 通过 With("component", name) 派生 logger，
// WithAttrs 在此处截获组件名并换算出该组件的级别。
type componentHandler struct {
	levels *atomic.Pointer[Levels]
	level  slog.Level
	// resolved 为 true 时 level 已按组件确定
	resolved bool
	inner    slog.Handler
}

func newComponentHandler(inner slog.Handler, levels Levels) *componentHandler {
	p := &atomic.Pointer[Levels]{}
	p.Store(&levels)
	return &componentHandler{
		levels: p,
		inner:  inner,
	}
}

// Enabled 检查是否启用指定级别
func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.resolved {
		return level >= h.level
	}
	return level >= h.levels.Load().Default
}

// Handle 处理日志记录
func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

// WithAttrs 添加属性
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &componentHandler{
		levels:   h.levels,
		level:    h.level,
		resolved: h.resolved,
		inner:    h.inner.WithAttrs(attrs),
	}
	for _, a := range attrs {
		if a.Key == componentKey {
			next.level = h.levels.Load().For(a.Value.String())
			next.resolved = true
		}
	}
	return next
}

// WithGroup 添加组
func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{
		levels:   h.levels,
		level:    h.level,
		resolved: h.resolved,
		inner:    h.inner.WithGroup(name),
	}
}

// replaceAttr 简化时间与级别字段
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		a.Key = "ts"
	}
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelToString(lvl))
		}
	}
	return a
}

// levelToString 将日志级别转换为小写字符串
func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// discardHandler 丢弃所有日志的 Handler（用于测试）
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardHandler 返回一个丢弃所有日志的 Handler
func DiscardHandler() slog.Handler {
	return discardHandler{}
}
