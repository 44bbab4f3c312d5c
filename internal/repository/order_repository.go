package repository

import (
	"context"
	"time"

	"eyewear/internal/domain/model"
)

// 注文一覧の絞り込み。UserIDがnilなら全ユーザー（管理者用）
type OrderListFilter struct {
	Page          int
	Limit         int
	OrderStatus   model.OrderStatus
	PaymentStatus model.PaymentStatus
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	//作成後はID・Versionが埋まった注文を返す
	Create(ctx context.Context, order model.Order) (model.Order, error)

	//楽観ロック付き更新。versionが一致しなければErrConflict
	//成功するとorder.Versionは+1される
	Update(ctx context.Context, order model.Order, expectedVersion int64) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
}
