package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// *amqp.Channelのうち使う部分
type amqpPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// topic exchangeへ、イベント名をルーティングキーにして送る
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       amqpPublisher
	exchange string
	timeout  time.Duration
	logger   *zap.Logger

	// Channelは並行Publish不可
	mu sync.Mutex
	wg sync.WaitGroup
}

func NewAMQPNotifier(url, exchange string, logger *zap.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange, timeout: publishTimeout, logger: logger}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event string, payload any) {
	env := NewEnvelope(event, payload, time.Now())
	body, err := env.Marshal()
	if err != nil {
		n.logger.Warn("notification marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		// タイムアウトしてもPublishは終わるまでwgに数える（Closeと競合させない）
		done := make(chan error, 1)
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.mu.Lock()
			defer n.mu.Unlock()
			done <- n.ch.Publish(n.exchange, event, false, false, amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Timestamp:    env.OccurredAt,
				Headers: amqp.Table{
					"event": event,
					"key":   messageKey(env),
				},
			})
		}()

		select {
		case err := <-done:
			if err != nil {
				n.logger.Warn("amqp publish failed", zap.String("event", event), zap.Error(err))
			}
		case <-ctx.Done():
			n.logger.Warn("amqp publish timed out", zap.String("event", event))
		}
	}()
}

// 送信中のメッセージを待ってから閉じる
func (n *AMQPNotifier) Close() error {
	n.wg.Wait()
	if err := n.ch.Close(); err != nil {
		if n.conn != nil {
			n.conn.Close()
		}
		return err
	}
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
