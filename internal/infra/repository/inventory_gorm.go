package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop/internal/domain/model"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// ロックなしの事前チェック用
func (r *InventoryGormRepository) FindByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	var rows []model.Inventory
	if err := r.db.WithContext(ctx).
		Where("variant_id IN ?", variantIDs).
		Order("variant_id asc").
		Find(&rows).Error; err != nil {
		return []model.Inventory{}, err
	}
	return rows, nil
}

// variant_id昇順でロックを取る（順序を揃えてデッドロック回避）
func (r *InventoryGormRepository) LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	var rows []model.Inventory
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id IN ?", variantIDs).
		Order("variant_id asc").
		Find(&rows).Error; err != nil {
		return []model.Inventory{}, err
	}
	return rows, nil
}

// 在庫が足りるときだけ減らす
func (r *InventoryGormRepository) DecreaseStockIfAvailable(ctx context.Context, variantID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("variant_id = ? AND qty_available >= ?", variantID, qty).
		Update("qty_available", gorm.Expr("qty_available - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}
