package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand   LogType = "CMD"
	TypeDB        LogType = "DB"
	TypeScheduler LogType = "SCHED"
	TypeSystem    LogType = "SYS"
	TypeError     LogType = "ERR"
)

// CustomHandler renders records as single colorized lines tagged with a
// log type ("type" attr: cmd, db, sched, error) and filters out the
// gateway chatter disgo emits at debug level.
type CustomHandler struct {
	opts  *slog.HandlerOptions
	attrs []slog.Attr
}

func NewHandler(level slog.Level) *CustomHandler {
	return &CustomHandler{
		opts: &slog.HandlerOptions{Level: level},
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		opts:  h.opts,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *CustomHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	var attrsStr strings.Builder
	appendAttr := func(a slog.Attr) bool {
		if a.Key != "type" {
			fmt.Fprintf(&attrsStr, " %s=%v", a.Key, a.Value)
		}
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)

	fmt.Printf("%s[habitbot] [%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		time.Now().Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		logType(h.attrs, &r),
		r.Message,
		attrsStr.String(),
		colorReset,
	)
	return nil
}

func logType(attrs []slog.Attr, r *slog.Record) LogType {
	typ := TypeSystem
	pick := func(a slog.Attr) bool {
		if a.Key != "type" {
			return true
		}
		switch a.Value.String() {
		case "cmd":
			typ = TypeCommand
		case "db":
			typ = TypeDB
		case "sched":
			typ = TypeScheduler
		case "error":
			typ = TypeError
		}
		return false
	}
	for _, a := range attrs {
		pick(a)
	}
	r.Attrs(pick)
	return typ
}

func shouldSkipLog(r *slog.Record) bool {
	skippedMessages := []string{
		"gateway event",
		"received gateway message",
		"sending gateway command",
		"sending heartbeat",
		"locking buckets",
		"unlocking buckets",
		"locking rest bucket",
		"unlocking rest bucket",
		"new request",
		"new response",
	}

	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}
