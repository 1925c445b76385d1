package application

import (
	"context"
	"log/slog"
)

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

func notify(ctx context.Context, n Notifier, logger *slog.Logger, message string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, message); err != nil {
		logger.Warn("notifying", "error", err)
	}
}
