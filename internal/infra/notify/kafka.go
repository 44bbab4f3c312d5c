package notify

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// 非同期Writer。書き込み結果はCompletionでログに出す
func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	n := &KafkaNotifier{logger: logger}
	n.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: publishTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				n.logger.Warn("kafka publish failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return n
}

func (n *KafkaNotifier) Notify(ctx context.Context, event string, payload any) {
	env := NewEnvelope(event, payload, time.Now())
	data, err := env.Marshal()
	if err != nil {
		n.logger.Warn("notification marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey(env)),
		Value: data,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event)},
			{Key: "event_id", Value: []byte(env.ID)},
		},
	})
	if err != nil {
		n.logger.Warn("kafka enqueue failed", zap.String("event", event), zap.Error(err))
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
