package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type CouponGormRepository struct {
	db *gorm.DB
}

// DI
func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

func (r *CouponGormRepository) FindByID(ctx context.Context, couponID int64) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", couponID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", model.NormalizeCouponCode(code)).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

// 引き換え。used_countの加算はガード付きUPDATEで行い、
// RowsAffected=0なら上限到達＝false。最後の1枠に同時に来ても勝者は1つだけ。
func (r *CouponGormRepository) Redeem(ctx context.Context, couponID int64, email string, orderID int64) (bool, error) {
	var redeemed bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Coupon{}).
			Where("id = ?", couponID).
			Where("max_uses IS NULL OR used_count < max_uses").
			Update("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			redeemed = false
			return nil
		}

		//成功した引き換えごとに1行
		red := model.CouponRedemption{
			CouponID: couponID,
			Email:    email,
			OrderID:  orderID,
		}
		if err := tx.Create(&red).Error; err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return redeemed, nil
}
