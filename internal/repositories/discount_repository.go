package repositories

import (
	"context"
	"gorm.io/gorm"
	"storefront/internal/models/db_models"
)

type DiscountRepositoryInterface interface {
	// IncrementUsage bumps used_count atomically; found is false for
	// unknown codes.
	IncrementUsage(ctx context.Context, code string) (found bool, err error)
	GetByCode(ctx context.Context, code string) (*db_models.Discount, error)
}

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepositoryInterface {
	return &DiscountRepository{db: db}
}

func (d DiscountRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	res := d.db.WithContext(ctx).Model(&db_models.Discount{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (d DiscountRepository) GetByCode(ctx context.Context, code string) (*db_models.Discount, error) {
	var discount db_models.Discount
	res := d.db.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&discount)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &discount, nil
}
