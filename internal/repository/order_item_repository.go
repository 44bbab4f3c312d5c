package repository

import (
	"context"

	"eyewear/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 明細の入れ替え時に使う
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
