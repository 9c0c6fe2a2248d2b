package repository

import (
	"context"

	"gorm.io/gorm"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type PaymentEventGormRepository struct {
	db *gorm.DB
}

// DI
func NewPaymentEventGormRepository(db *gorm.DB) *PaymentEventGormRepository {
	return &PaymentEventGormRepository{db: db}
}

// (provider, event_id)の一意制約が冪等判定。重複はErrDuplicate。
func (r *PaymentEventGormRepository) Insert(ctx context.Context, event model.PaymentEvent) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return event.ID, nil
}

func (r *PaymentEventGormRepository) AttachPayment(ctx context.Context, eventID int64, paymentID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PaymentEvent{}).
		Where("id = ?", eventID).
		Update("payment_id", paymentID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
