package repository

import (
	"context"

	"eyewear/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterGormRepository struct {
	db *gorm.DB
}

func NewCounterGormRepository(db *gorm.DB) *CounterGormRepository {
	return &CounterGormRepository{db: db}
}

// INSERT ... ON CONFLICT DO UPDATE で1文で採番する（行ロックで直列化される）
func (r *CounterGormRepository) Next(ctx context.Context, name string) (int64, error) {
	c := model.OrderCounter{Name: name, Value: 1}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("order_counters.value + 1")}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(&c).Error
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}
