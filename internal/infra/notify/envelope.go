package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// 送信メッセージの共通フォーマット
type Envelope struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func NewEnvelope(event string, payload any, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		OccurredAt: now.UTC(),
		Data:       payload,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// パーティションキー。payloadが持っていればそれを使う（同じ注文のイベントを順番通りに流す）
func messageKey(env Envelope) string {
	if k, ok := env.Data.(interface{ NotificationKey() string }); ok {
		if key := k.NotificationKey(); key != "" {
			return key
		}
	}
	return env.ID
}
