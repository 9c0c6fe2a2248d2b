package repository

import (
	"context"

	"gorm.io/gorm"

	repo "shop/internal/repository"
)

type txReposGorm struct {
	orders          repo.OrderRepository
	orderItems      repo.OrderItemRepository
	orderEvents     repo.OrderEventRepository
	carts           repo.CartRepository
	cartItems       repo.CartItemRepository
	coupons         repo.CouponRepository
	inventory       repo.InventoryRepository
	payments        repo.PaymentRepository
	paymentEvents   repo.PaymentEventRepository
	addresses       repo.AddressRepository
	shippingMethods repo.ShippingMethodRepository
	variants        repo.VariantRepository
	returns         repo.ReturnRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                   { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository           { return r.orderItems }
func (r *txReposGorm) OrderEvents() repo.OrderEventRepository         { return r.orderEvents }
func (r *txReposGorm) Carts() repo.CartRepository                     { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository             { return r.cartItems }
func (r *txReposGorm) Coupons() repo.CouponRepository                 { return r.coupons }
func (r *txReposGorm) Inventory() repo.InventoryRepository            { return r.inventory }
func (r *txReposGorm) Payments() repo.PaymentRepository               { return r.payments }
func (r *txReposGorm) PaymentEvents() repo.PaymentEventRepository     { return r.paymentEvents }
func (r *txReposGorm) Addresses() repo.AddressRepository              { return r.addresses }
func (r *txReposGorm) ShippingMethods() repo.ShippingMethodRepository { return r.shippingMethods }
func (r *txReposGorm) Variants() repo.VariantRepository               { return r.variants }
func (r *txReposGorm) Returns() repo.ReturnRepository                 { return r.returns }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:          NewOrderGormRepository(tx),
			orderItems:      NewOrderItemGormRepository(tx),
			orderEvents:     NewOrderEventGormRepository(tx),
			carts:           NewCartGormRepository(tx),
			cartItems:       NewCartItemGormRepository(tx),
			coupons:         NewCouponGormRepository(tx),
			inventory:       NewInventoryGormRepository(tx),
			payments:        NewPaymentGormRepository(tx),
			paymentEvents:   NewPaymentEventGormRepository(tx),
			addresses:       NewAddressGormRepository(tx),
			shippingMethods: NewShippingMethodGormRepository(tx),
			variants:        NewVariantGormRepository(tx),
			returns:         NewReturnGormRepository(tx),
		}
		return fn(r)
	})
}
