package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"eyewear/internal/domain/model"
	repo "eyewear/internal/repository"
)

// 注文明細の入力（商品IDと数量だけ。価格はサーバー側で引く）
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// 入力チェックと同一商品のまとめ。順番は最初に出てきた順
func normalizeItems(items []OrderItemInput) ([]OrderItemInput, error) {
	if len(items) == 0 {
		return nil, validationError("items", "order must have at least one item")
	}

	out := make([]OrderItemInput, 0, len(items))
	index := make(map[int64]int, len(items))
	for i, it := range items {
		if it.ProductID <= 0 {
			return nil, validationError(fmt.Sprintf("items[%d].product_id", i), "invalid product_id")
		}
		if it.Quantity < 1 {
			return nil, validationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be >= 1")
		}
		if j, ok := index[it.ProductID]; ok {
			if out[j].Quantity > math.MaxInt64-it.Quantity {
				return nil, validationError(fmt.Sprintf("items[%d].quantity", i), "quantity too large")
			}
			out[j].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// 現在の商品価格で明細を作る（価格はここでスナップショット）
func priceItems(ctx context.Context, products repo.ProductRepository, items []OrderItemInput, now time.Time) ([]model.OrderItem, error) {
	lines := make([]model.OrderItem, 0, len(items))
	var total int64
	for i, it := range items {
		if it.Quantity < 1 {
			return nil, validationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be >= 1")
		}
		p, err := products.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, productNotFoundError(it.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("find product %d: %w", it.ProductID, err)
		}
		if !p.IsActive {
			return nil, productNotFoundError(it.ProductID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product %d has negative price", p.ID)
		}
		// 桁あふれ防止
		if p.Price > 0 && it.Quantity > math.MaxInt64/p.Price {
			return nil, validationError(fmt.Sprintf("items[%d].quantity", i), "quantity too large")
		}
		subtotal := p.Price * it.Quantity
		// 合計も桁あふれさせない
		if total > math.MaxInt64-subtotal {
			return nil, validationError("items", "order total too large")
		}
		total += subtotal

		lines = append(lines, model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.Name,
			UnitPrice:           p.Price,
			Quantity:            it.Quantity,
			Subtotal:            subtotal,
			CreatedAt:           now,
		})
	}
	return lines, nil
}

// 合計金額。明細の小計の和（priceItemsを通した明細なら桁あふれしない）
func CalcTotal(items []model.OrderItem) (int64, error) {
	var total int64
	for _, it := range items {
		if it.Subtotal < 0 || total > math.MaxInt64-it.Subtotal {
			return 0, validationError("items", "order total too large")
		}
		total += it.Subtotal
	}
	return total, nil
}

// 商品IDの昇順に並べる。どのトランザクションも同じ順で行ロックを取る
func stockLines(items []model.OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}
