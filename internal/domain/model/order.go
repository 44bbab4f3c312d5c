package model

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 定義済みのステータスか
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 明細・配送先を変更できるのはPENDINGの間だけ
func (s OrderStatus) Editable() bool {
	return s == OrderStatusPending
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash-on-delivery"
	PaymentMethodOnline         PaymentMethod = "online"
	PaymentMethodCreditCard     PaymentMethod = "credit-card"
	PaymentMethodDebitCard      PaymentMethod = "debit-card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodOnline, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// 作成時の支払いステータス（代引きだけpending、それ以外はpaid）
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m == PaymentMethodCashOnDelivery {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// 配送先（注文に埋め込み）
type ShippingAddress struct {
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone    string `gorm:"type:varchar(30);not null" json:"phone"`
	Address  string `gorm:"type:text;not null" json:"address"`
}

// 空の項目名を返す（全部埋まっていれば""）
func (a ShippingAddress) MissingField() string {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return "shipping_address.full_name"
	case strings.TrimSpace(a.Phone) == "":
		return "shipping_address.phone"
	case strings.TrimSpace(a.Address) == "":
		return "shipping_address.address"
	}
	return ""
}

type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID          int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	TotalAmount     int64           `gorm:"not null" json:"total_amount"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	OrderStatus     OrderStatus     `gorm:"type:varchar(20);not null;index" json:"order_status"`
	TrackingNumber  string          `gorm:"type:varchar(255)" json:"tracking_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	// 空文字はキー無し。PostgresのユニークインデックスはNULL同士を衝突させないのでポインタにする
	IdempotencyKey *string   `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency" json:"-"`
	Version        int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
