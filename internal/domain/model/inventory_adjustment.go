package model

import "time"

//在庫の増減履歴（引当・戻し）

type InventoryReason string

const (
	InventoryReasonReserve InventoryReason = "ORDER_RESERVE"
	InventoryReasonRelease InventoryReason = "ORDER_RELEASE"
)

type InventoryAdjustment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64           `gorm:"not null;index" json:"product_id"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	ActorUserID int64           `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64           `gorm:"not null" json:"delta"`
	Reason      InventoryReason `gorm:"type:varchar(50);not null" json:"reason"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
