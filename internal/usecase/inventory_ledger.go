package usecase

import (
	"context"
	"errors"
	"fmt"

	"eyewear/internal/domain/model"
	repo "eyewear/internal/repository"
)

type StockLine struct {
	ProductID int64
	Quantity  int64
}

// 履歴に残す注文と操作者
type ledgerRef struct {
	OrderID     int64
	ActorUserID int64
}

// 在庫の引当/戻し。必ず呼び出し側のトランザクションの中で使う
type inventoryLedger struct{}

// 在庫が足りなければInsufficientStock（減算はしない）
func (inventoryLedger) Reserve(ctx context.Context, r repo.TxRepos, ref ledgerRef, line StockLine) error {
	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("decrease stock %d: %w", line.ProductID, err)
	}
	if !ok {
		//足りない理由を調べる（商品が無い or 在庫不足）
		p, err := r.Products().FindByID(ctx, line.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return productNotFoundError(line.ProductID)
		}
		if err != nil {
			return fmt.Errorf("find product %d: %w", line.ProductID, err)
		}
		return insufficientStockError(line.ProductID, p.Stock, line.Quantity)
	}

	return r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:   line.ProductID,
		OrderID:     ref.OrderID,
		ActorUserID: ref.ActorUserID,
		Delta:       -line.Quantity,
		Reason:      model.InventoryReasonReserve,
	})
}

func (inventoryLedger) Release(ctx context.Context, r repo.TxRepos, ref ledgerRef, line StockLine) error {
	if err := r.Inventory().IncreaseStock(ctx, line.ProductID, line.Quantity); err != nil {
		return fmt.Errorf("increase stock %d: %w", line.ProductID, err)
	}

	return r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:   line.ProductID,
		OrderID:     ref.OrderID,
		ActorUserID: ref.ActorUserID,
		Delta:       line.Quantity,
		Reason:      model.InventoryReasonRelease,
	})
}

// 全明細を引当。途中で失敗したら、それまでに減らした分を戻してからエラーを返す
func (l inventoryLedger) ReserveAll(ctx context.Context, r repo.TxRepos, ref ledgerRef, lines []StockLine) error {
	for i, line := range lines {
		err := l.Reserve(ctx, r, ref, line)
		if err == nil {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			if cerr := l.Release(ctx, r, ref, lines[j]); cerr != nil {
				return errors.Join(err, fmt.Errorf("compensate product %d: %w", lines[j].ProductID, cerr))
			}
		}
		return err
	}
	return nil
}

func (l inventoryLedger) ReleaseAll(ctx context.Context, r repo.TxRepos, ref ledgerRef, lines []StockLine) error {
	for _, line := range lines {
		if err := l.Release(ctx, r, ref, line); err != nil {
			return err
		}
	}
	return nil
}
