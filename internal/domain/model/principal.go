package model

import "strings"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// JWTのroleクレームを正規化する。大文字小文字の揺れ（ADMIN/admin）や旧名USERもここで吸収
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "customer", "user":
		return RoleCustomer, true
	}
	return "", false
}

// 認証済みの操作者。認証境界で1回だけ組み立てる
type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) Owns(o Order) bool {
	return p.UserID > 0 && p.UserID == o.UserID
}
