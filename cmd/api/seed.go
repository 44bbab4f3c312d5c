package main

import (
	"eyewear/internal/domain/model"
	"eyewear/internal/infra/repository/memory"
)

// メモリストア用の初期商品（ローカル動作確認用）
func seedProducts(store *memory.Store) {
	frames := []model.Product{
		{Name: "Wellington Classic", Brand: "Kaneko", Description: "acetate, black", Price: 18000, Stock: 20, IsActive: true},
		{Name: "Boston Titanium", Brand: "Masunaga", Description: "titanium, gold", Price: 32000, Stock: 10, IsActive: true},
		{Name: "Round Metal", Brand: "Kaneko", Description: "metal, silver", Price: 15000, Stock: 15, IsActive: true},
		{Name: "Blue Light Clip", Brand: "House", Description: "clip-on lens", Price: 3000, Stock: 50, IsActive: true},
	}
	for _, p := range frames {
		store.PutProduct(p)
	}
}
