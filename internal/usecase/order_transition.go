package usecase

import "eyewear/internal/domain/model"

// ロールごとの遷移可能先。ここに無い組み合わせは全て不可
var orderTransitions = map[model.OrderStatus]map[model.Role][]model.OrderStatus{
	model.OrderStatusPending: {
		model.RoleCustomer: {model.OrderStatusCancelled},
		model.RoleAdmin:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
	},
	model.OrderStatusProcessing: {
		model.RoleCustomer: {model.OrderStatusCancelled},
		model.RoleAdmin:    {model.OrderStatusShipped, model.OrderStatusCancelled},
	},
	model.OrderStatusShipped: {
		model.RoleAdmin: {model.OrderStatusDelivered},
	},
	// キャンセル取り消しは管理者だけ（在庫を引き直す）
	model.OrderStatusCancelled: {
		model.RoleAdmin: {model.OrderStatusProcessing, model.OrderStatusPending},
	},
}

func canTransition(role model.Role, from, to model.OrderStatus) bool {
	for _, s := range orderTransitions[from][role] {
		if s == to {
			return true
		}
	}
	return false
}

type stockEffect int

const (
	stockEffectNone stockEffect = iota
	stockEffectRelease
	stockEffectReserve
)

// 遷移に伴う在庫の動き
func transitionEffect(from, to model.OrderStatus) stockEffect {
	switch {
	case from == to:
		return stockEffectNone
	case to == model.OrderStatusCancelled:
		return stockEffectRelease
	case from == model.OrderStatusCancelled:
		return stockEffectReserve
	}
	return stockEffectNone
}
