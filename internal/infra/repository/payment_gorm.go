package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

// DI
func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicate
		}
		return 0, err
	}
	return p.ID, nil
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", paymentID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByProviderOrderID(ctx context.Context, provider string, providerOrderID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_order_id = ?", provider, providerOrderID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// webhookの照合はevent_idではなくprovider_order_idで引く
func (r *PaymentGormRepository) FindByProviderOrderIDForUpdate(ctx context.Context, provider string, providerOrderID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND provider_order_id = ?", provider, providerOrderID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// 返金対象のcaptured済み決済。providerPaymentIDが空なら最新の1件。
func (r *PaymentGormRepository) FindCapturedForUpdate(ctx context.Context, orderID int64, providerPaymentID string) (model.Payment, error) {
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Where("status IN ?", []model.PaymentStatus{
			model.PaymentStatusCaptured,
			model.PaymentStatusPartialRefunded,
		})
	if providerPaymentID != "" {
		q = q.Where("provider_payment_id = ?", providerPaymentID)
	}

	var p model.Payment
	err := q.Order("id desc").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) Save(ctx context.Context, p model.Payment) error {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":              p.Status,
			"provider_payment_id": p.ProviderPaymentID,
			"amount_paise":        p.AmountPaise,
			"currency":            p.Currency,
			"refund_id":           p.RefundID,
			"refund_amount_paise": p.RefundAmountPaise,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// pgxのSQLSTATE 23505（unique_violation）判定
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
