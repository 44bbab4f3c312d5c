package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 送信せずログに出すだけ（開発用）
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event string, payload any) {
	env := NewEnvelope(event, payload, time.Now())
	n.logger.Info("notification",
		zap.String("event_id", env.ID),
		zap.String("event", event),
		zap.String("key", messageKey(env)),
		zap.Any("data", payload),
	)
}

func (n *LogNotifier) Close() error { return nil }
