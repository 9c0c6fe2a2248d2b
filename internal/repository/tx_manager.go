package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	OrderEvents() OrderEventRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Coupons() CouponRepository
	Inventory() InventoryRepository
	Payments() PaymentRepository
	PaymentEvents() PaymentEventRepository
	Addresses() AddressRepository
	ShippingMethods() ShippingMethodRepository
	Variants() VariantRepository
	Returns() ReturnRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返せば全部ロールバック、nilならコミット。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
