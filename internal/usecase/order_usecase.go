package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"eyewear/internal/domain/model"
	"eyewear/internal/observability"
	repo "eyewear/internal/repository"

	"go.uber.org/zap"
)

const (
	maxNotesLength          = 1000
	maxIdempotencyKeyLength = 255
)

// 通知イベント名
const (
	EventOrderCreated              = "order.created"
	EventOrderItemsUpdated         = "order.items_updated"
	EventOrderStatusChanged        = "order.status_changed"
	EventOrderCancelled            = "order.cancelled"
	EventOrderPaymentStatusChanged = "order.payment_status_changed"
)

// 通知の出口（メール送信など）。呼び出し側は結果を待たないので、実装はブロックしないこと
type Notifier interface {
	Notify(ctx context.Context, event string, payload any)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type OrderUsecase struct {
	tx       repo.TransactionManager
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
	metrics  *observability.OrderMetrics
	ledger   inventoryLedger
}

// notifier/clock/logger/metricsはnil可
func NewOrderUsecase(tx repo.TransactionManager, notifier Notifier, clock Clock, logger *zap.Logger, metrics *observability.OrderMetrics) *OrderUsecase {
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderUsecase{
		tx:       tx,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	Notes           string
	IdempotencyKey  string
}

type ListOrdersInput struct {
	Page          int
	Limit         int
	OrderStatus   string
	PaymentStatus string
	// 管理者だけ指定できる
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          int64                 `json:"user_id"`
	Items           []OrderItemOutput     `json:"items"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	TotalAmount     int64                 `json:"total_amount"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentStatus   string                `json:"payment_status"`
	OrderStatus     string                `json:"order_status"`
	TrackingNumber  string                `json:"tracking_number,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// 通知のパーティションキー（同じ注文のイベントを同じ順で流す）
func (o OrderOutput) NotificationKey() string {
	return o.OrderNumber
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, p model.Principal, in CreateOrderInput) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.CreateOrder")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return OrderOutput{}, err
	}
	addr := model.ShippingAddress{
		FullName: strings.TrimSpace(in.ShippingAddress.FullName),
		Phone:    strings.TrimSpace(in.ShippingAddress.Phone),
		Address:  strings.TrimSpace(in.ShippingAddress.Address),
	}
	if field := addr.MissingField(); field != "" {
		return OrderOutput{}, validationError(field, field+" is required")
	}
	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	if !method.Valid() {
		return OrderOutput{}, validationError("payment_method", "invalid payment_method")
	}
	notes := strings.TrimSpace(in.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return OrderOutput{}, validationError("notes", "notes too long")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if utf8.RuneCountInString(key) > maxIdempotencyKeyLength {
		return OrderOutput{}, validationError("idempotency_key", "invalid idempotency_key")
	}

	var (
		out      OrderOutput
		replayed bool
	)

	//注文処理はトランザクション（引当・採番・明細・監査ログを全部まとめる）
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if key != "" {
			// 同じキーなら同じ結果
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, p.UserID, key)
			if err != nil {
				return fmt.Errorf("find by idempotency key: %w", err)
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return fmt.Errorf("list order items: %w", err)
				}
				out = toOrderOutput(existing, items)
				replayed = true
				return nil
			}
		}

		now := u.clock.Now()

		//価格スナップショット（ここで商品の存在も確認）
		lines, err := priceItems(ctx, r.Products(), items, now)
		if err != nil {
			return err
		}
		total, err := CalcTotal(lines)
		if err != nil {
			return err
		}

		number, err := nextOrderNumber(ctx, r.Counters(), now)
		if err != nil {
			return err
		}

		order := model.Order{
			OrderNumber:     number,
			UserID:          p.UserID,
			ShippingAddress: addr,
			TotalAmount:     total,
			PaymentMethod:   method,
			PaymentStatus:   method.InitialPaymentStatus(),
			OrderStatus:     model.OrderStatusPending,
			Notes:           notes,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}
		created, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrConflict) {
			//同時に同じキーが入った等。再送してもらえば既存注文が返る
			return conflictError("order already being created")
		}
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		//在庫引当（足りなければ全体をロールバック）
		if err := u.ledger.ReserveAll(ctx, r, ledgerRef{OrderID: created.ID, ActorUserID: p.UserID}, stockLines(lines)); err != nil {
			return err
		}

		saved, err := r.OrderItems().CreateBulk(ctx, created.ID, lines)
		if err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		out = toOrderOutput(created, saved)
		return writeAudit(ctx, r, p, model.AuditActionCreateOrder, created.ID, nil, out, now)
	})
	if err != nil {
		return OrderOutput{}, u.fail(ctx, "order.create", err)
	}

	if !replayed {
		u.metrics.OrderCreated()
		u.notify(ctx, EventOrderCreated, out)
	}
	return out, nil
}

// 本人か管理者だけ見られる
func (u *OrderUsecase) GetOrder(ctx context.Context, p model.Principal, orderID int64) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.GetOrder")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("id", "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.Owns(o) {
			return forbiddenError("not authorized to access this order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, u.fail(ctx, "order.get", err)
	}
	return out, nil
}

// 管理者は全件、顧客は自分の注文だけ（絞り込み条件は同じ）
func (u *OrderUsecase) ListOrders(ctx context.Context, p model.Principal, in ListOrdersInput) (OrderListOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.ListOrders")
	defer span.End()

	if p.UserID <= 0 {
		return OrderListOutput{}, unauthorizedError()
	}
	// page/limitの最低限チェック
	if in.Page < 1 {
		return OrderListOutput{}, validationError("page", "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, validationError("limit", "invalid limit")
	}

	f := repo.OrderListFilter{
		Page:  in.Page,
		Limit: in.Limit,
		From:  in.From,
		To:    in.To,
	}
	if s := strings.TrimSpace(in.OrderStatus); s != "" {
		f.OrderStatus = model.OrderStatus(strings.ToLower(s))
		if !f.OrderStatus.Valid() {
			return OrderListOutput{}, validationError("status", "invalid status")
		}
	}
	if s := strings.TrimSpace(in.PaymentStatus); s != "" {
		f.PaymentStatus = model.PaymentStatus(strings.ToLower(s))
		if !f.PaymentStatus.Valid() {
			return OrderListOutput{}, validationError("payment_status", "invalid payment_status")
		}
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return OrderListOutput{}, validationError("from", "from must be <= to")
	}

	if p.IsAdmin() {
		f.UserID = in.UserID
	} else {
		if in.UserID != nil && *in.UserID != p.UserID {
			return OrderListOutput{}, forbiddenError("not authorized to list other users' orders")
		}
		own := p.UserID
		f.UserID = &own
	}

	out := OrderListOutput{Page: in.Page, Limit: in.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, u.fail(ctx, "order.list", err)
	}
	return out, nil
}

// 明細を丸ごと入れ替える。注文した本人だけ、PENDINGの間だけ
func (u *OrderUsecase) UpdateOrderItems(ctx context.Context, p model.Principal, orderID int64, newItems []OrderItemInput) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.UpdateOrderItems")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("id", "invalid id")
	}
	items, err := normalizeItems(newItems)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !p.Owns(o) {
			return forbiddenError("only the owner can change order items")
		}
		if !o.OrderStatus.Editable() {
			return orderNotEditableError(o.OrderStatus)
		}

		oldItems, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		before := toOrderOutput(o, oldItems)

		now := u.clock.Now()
		lines, err := priceItems(ctx, r.Products(), items, now)
		if err != nil {
			return err
		}

		//古い引当を戻してから新しい明細で引き直す
		ref := ledgerRef{OrderID: o.ID, ActorUserID: p.UserID}
		if err := u.ledger.ReleaseAll(ctx, r, ref, stockLines(oldItems)); err != nil {
			return err
		}
		if err := u.ledger.ReserveAll(ctx, r, ref, stockLines(lines)); err != nil {
			return err
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		saved, err := r.OrderItems().CreateBulk(ctx, o.ID, lines)
		if err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		total, err := CalcTotal(saved)
		if err != nil {
			return err
		}
		o.TotalAmount = total
		o.UpdatedAt = now
		if err := saveOrder(ctx, r, &o); err != nil {
			return err
		}

		out = toOrderOutput(o, saved)
		return writeAudit(ctx, r, p, model.AuditActionUpdateOrderItems, o.ID, before, out, now)
	})
	if err != nil {
		return OrderOutput{}, u.fail(ctx, "order.update_items", err)
	}

	u.notify(ctx, EventOrderItemsUpdated, out)
	return out, nil
}

func loadOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, orderNotFoundError(orderID)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order %d: %w", orderID, err)
	}
	return o, nil
}

// 楽観ロックで保存。成功したらVersionを進める
func saveOrder(ctx context.Context, r repo.TxRepos, o *model.Order) error {
	err := r.Orders().Update(ctx, *o, o.Version)
	if errors.Is(err, repo.ErrConflict) {
		return conflictError("order was modified concurrently")
	}
	if errors.Is(err, repo.ErrNotFound) {
		return orderNotFoundError(o.ID)
	}
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	o.Version++
	return nil
}

func writeAudit(ctx context.Context, r repo.TxRepos, p model.Principal, action model.AuditAction, orderID int64, before, after any, now time.Time) error {
	beforeJSON, err := auditJSON(before)
	if err != nil {
		return err
	}
	afterJSON, err := auditJSON(after)
	if err != nil {
		return err
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  p.UserID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    now,
	}); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func auditJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	return string(b), nil
}

// HTTPErrorはそのまま、それ以外はログに残して500にする
func (u *OrderUsecase) fail(ctx context.Context, op string, err error) error {
	if he, ok := AsHTTPError(err); ok {
		if he.Kind == KindInsufficientStock {
			u.metrics.ReservationFailed()
		}
		return he
	}
	if errors.Is(err, repo.ErrConflict) {
		return conflictError("order was modified concurrently")
	}

	fields := append([]zap.Field{zap.String("op", op), zap.Error(err)}, observability.TraceFields(ctx)...)
	u.logger.Error("order operation failed", fields...)
	return internalError()
}

// 結果は待たない（失敗しても注文処理には影響させない）
func (u *OrderUsecase) notify(ctx context.Context, event string, out OrderOutput) {
	if u.notifier == nil {
		return
	}
	u.notifier.Notify(context.WithoutCancel(ctx), event, out)
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           outItems,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		OrderStatus:     string(o.OrderStatus),
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
