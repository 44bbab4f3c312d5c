package repository

import (
	"context"
	"errors"

	"eyewear/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")
	// 楽観ロックの不一致、ユニーク制約違反
	ErrConflict = errors.New("conflict")
)

// カタログ参照だけを約束（商品管理は別サービス）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
