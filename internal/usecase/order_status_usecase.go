package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"eyewear/internal/domain/model"
	"eyewear/internal/observability"
	repo "eyewear/internal/repository"
)

const maxTrackingNumberLength = 255

type UpdateOrderStatusInput struct {
	Status string
	// nilなら変更しない。管理者だけ指定できる
	TrackingNumber *string
}

type UpdatePaymentStatusInput struct {
	PaymentStatus string
}

// ステータス更新（遷移表で可否を判定し、キャンセル/取り消しで在庫を動かす）
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, p model.Principal, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.UpdateOrderStatus")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("id", "invalid id")
	}
	to := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !to.Valid() {
		return OrderOutput{}, validationError("status", "invalid status")
	}

	var tracking *string
	if in.TrackingNumber != nil {
		if !p.IsAdmin() {
			return OrderOutput{}, forbiddenError("only admin can set tracking number")
		}
		t := strings.TrimSpace(*in.TrackingNumber)
		if utf8.RuneCountInString(t) > maxTrackingNumberLength {
			return OrderOutput{}, validationError("tracking_number", "tracking_number too long")
		}
		tracking = &t
	}

	return u.changeStatus(ctx, p, orderID, to, tracking, model.AuditActionUpdateOrderStatus)
}

// キャンセル。本人か管理者、PENDING/PROCESSINGからだけ。キャンセル済みなら何もしない
func (u *OrderUsecase) CancelOrder(ctx context.Context, p model.Principal, orderID int64) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.CancelOrder")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("id", "invalid id")
	}

	return u.changeStatus(ctx, p, orderID, model.OrderStatusCancelled, nil, model.AuditActionCancelOrder)
}

func (u *OrderUsecase) changeStatus(ctx context.Context, p model.Principal, orderID int64, to model.OrderStatus, tracking *string, action model.AuditAction) (OrderOutput, error) {
	var (
		out     OrderOutput
		from    model.OrderStatus
		changed bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.Owns(o) {
			return forbiddenError("not authorized to change this order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		before := toOrderOutput(o, items)
		from = o.OrderStatus

		// すでに同じなら何もしない（追跡番号だけの更新は管理者のみここで通る）
		if from == to {
			if tracking == nil || *tracking == o.TrackingNumber {
				out = before
				return nil
			}
			action = model.AuditActionUpdateTracking
		} else {
			if !canTransition(p.Role, from, to) {
				return invalidTransitionError(from, to)
			}

			ref := ledgerRef{OrderID: o.ID, ActorUserID: p.UserID}
			switch transitionEffect(from, to) {
			case stockEffectRelease:
				if err := u.ledger.ReleaseAll(ctx, r, ref, stockLines(items)); err != nil {
					return err
				}
			case stockEffectReserve:
				// 1つでも足りなければ全体が失敗し、CANCELLEDのまま
				if err := u.ledger.ReserveAll(ctx, r, ref, stockLines(items)); err != nil {
					return err
				}
			}
			o.OrderStatus = to
		}

		if tracking != nil {
			o.TrackingNumber = *tracking
		}
		now := u.clock.Now()
		o.UpdatedAt = now
		if err := saveOrder(ctx, r, &o); err != nil {
			return err
		}

		changed = true
		out = toOrderOutput(o, items)
		return writeAudit(ctx, r, p, action, o.ID, statusSnapshot(before), statusSnapshot(out), now)
	})
	if err != nil {
		return OrderOutput{}, u.fail(ctx, "order.change_status", err)
	}

	if changed && from != to {
		u.metrics.Transition(string(from), string(to))
		event := EventOrderStatusChanged
		if to == model.OrderStatusCancelled {
			event = EventOrderCancelled
		}
		u.notify(ctx, event, out)
	}
	return out, nil
}

// 支払いステータスの更新。管理者だけ、在庫は動かさない
func (u *OrderUsecase) UpdatePaymentStatus(ctx context.Context, p model.Principal, orderID int64, in UpdatePaymentStatusInput) (OrderOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "OrderUsecase.UpdatePaymentStatus")
	defer span.End()

	if p.UserID <= 0 {
		return OrderOutput{}, unauthorizedError()
	}
	if !p.IsAdmin() {
		return OrderOutput{}, forbiddenError("admin only")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("id", "invalid id")
	}
	status := model.PaymentStatus(strings.ToLower(strings.TrimSpace(in.PaymentStatus)))
	if !status.Valid() {
		return OrderOutput{}, validationError("payment_status", "invalid payment_status")
	}

	var (
		out     OrderOutput
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		if o.PaymentStatus == status {
			out = toOrderOutput(o, items)
			return nil
		}

		before := map[string]string{"payment_status": string(o.PaymentStatus)}
		now := u.clock.Now()
		o.PaymentStatus = status
		o.UpdatedAt = now
		if err := saveOrder(ctx, r, &o); err != nil {
			return err
		}

		changed = true
		out = toOrderOutput(o, items)
		after := map[string]string{"payment_status": string(status)}
		return writeAudit(ctx, r, p, model.AuditActionUpdatePaymentStatus, o.ID, before, after, now)
	})
	if err != nil {
		return OrderOutput{}, u.fail(ctx, "order.update_payment_status", err)
	}

	if changed {
		u.notify(ctx, EventOrderPaymentStatusChanged, out)
	}
	return out, nil
}

// 監査ログに残すのはステータスと追跡番号だけ
func statusSnapshot(o OrderOutput) map[string]string {
	return map[string]string{
		"order_status":    o.OrderStatus,
		"tracking_number": o.TrackingNumber,
	}
}
