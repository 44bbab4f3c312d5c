package model

// 採番用カウンタ（注文番号の連番）
type OrderCounter struct {
	Name  string `gorm:"type:varchar(64);primaryKey" json:"name"`
	Value int64  `gorm:"not null" json:"value"`
}
