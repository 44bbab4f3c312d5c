package usecase

import (
	"context"
	"fmt"
	"time"

	repo "eyewear/internal/repository"
)

const orderNumberCounter = "orders"

// ORD-<作成時刻>-<連番>。連番はDBのカウンタなので同じ時刻でも重複しない
func formatOrderNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", now.UTC().Format("20060102150405"), seq)
}

func nextOrderNumber(ctx context.Context, counters repo.CounterRepository, now time.Time) (string, error) {
	seq, err := counters.Next(ctx, orderNumberCounter)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return formatOrderNumber(now, seq), nil
}
