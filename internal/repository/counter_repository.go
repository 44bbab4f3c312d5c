package repository

import "context"

// 名前ごとの単調増加カウンタ
type CounterRepository interface {
	// +1した値を返す（最初は1）
	Next(ctx context.Context, name string) (int64, error)
}
