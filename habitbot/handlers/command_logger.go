package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot/config"
)

// WrapWithLogging wraps a command handler with structured logging and a
// timeout guard.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			attrs := []any{
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.Duration("took", time.Since(start)),
			}
			if err != nil {
				slog.Error("Command failed", append(attrs, slog.Any("error", err))...)
			} else {
				slog.Info("Command completed", attrs...)
			}
			return err
		case <-time.After(config.CommandTimeout):
			slog.Error("Command timed out",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.Duration("timeout", config.CommandTimeout))
			return fmt.Errorf("command %s timed out after %s", name, config.CommandTimeout)
		}
	}
}

// WrapComponentWithLogging wraps a component handler with structured
// logging.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		start := time.Now()
		err := h(e)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.Duration("took", time.Since(start)),
		}
		if err != nil {
			slog.Error("Component interaction failed", append(attrs, slog.Any("error", err))...)
		} else {
			slog.Info("Component interaction completed", attrs...)
		}
		return err
	}
}
